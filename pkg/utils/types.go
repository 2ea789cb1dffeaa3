package utils

// Date layouts seen in provider payloads
const (
	DATE_LAYOUT     = "2006-01-02"
	MOT_DATE_LAYOUT = "2006.01.02 15:04:05"
	UK_DATE_LAYOUT  = "02/01/2006"
)

// KM_TO_MILES converts an odometer reading recorded in kilometres
const KM_TO_MILES = 0.621371
