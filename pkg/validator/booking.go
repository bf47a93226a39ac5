package validator

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrInvalidPNR indicates a PNR that is not exactly 10 digits
	ErrInvalidPNR = errors.New("pnr must be exactly 10 digits")

	// ErrInvalidStationCode indicates a station code that is not 2 to 5 letters
	ErrInvalidStationCode = errors.New("station code must be 2 to 5 letters")

	// ErrInvalidDate indicates a date that is not formatted as YYYY-MM-DD
	ErrInvalidDate = errors.New("date must be formatted as YYYY-MM-DD")

	// ErrInvalidStatus indicates an unknown booking status filter
	ErrInvalidStatus = errors.New("status must be one of CONFIRMED, WAITLIST, CANCELLED")
)

const dateLayout = "2006-01-02"

var (
	pnrRegex         = regexp.MustCompile(`^\d{10}$`)
	stationCodeRegex = regexp.MustCompile(`^[A-Z]{2,5}$`)
)

var bookingStatuses = map[string]bool{
	"CONFIRMED": true,
	"WAITLIST":  true,
	"CANCELLED": true,
}

// ValidatePNR trims the PNR and checks its shape
func ValidatePNR(pnr string) (string, error) {
	pnr = strings.TrimSpace(pnr)
	if !pnrRegex.MatchString(pnr) {
		return "", ErrInvalidPNR
	}
	return pnr, nil
}

// NormalizeStationCode upper-cases a station code and checks its shape
func NormalizeStationCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !stationCodeRegex.MatchString(code) {
		return "", ErrInvalidStationCode
	}
	return code, nil
}

// ParseDate parses a journey date
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// ParseStatusFilter splits a comma separated status filter. An empty filter yields nil.
func ParseStatusFilter(filter string) ([]string, error) {
	if strings.TrimSpace(filter) == "" {
		return nil, nil
	}

	var statuses []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(filter, ",") {
		status := strings.ToUpper(strings.TrimSpace(part))
		if !bookingStatuses[status] {
			return nil, ErrInvalidStatus
		}
		if !seen[status] {
			seen[status] = true
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}
