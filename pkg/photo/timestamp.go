package photo

import (
	"fmt"
	"regexp"
	"strconv"
)

var clockPattern = regexp.MustCompile(`([0-9]{1,2})[:+]([0-9]{2})[:+]([0-9]{2})`)

// TimeOfDay returns the seconds since midnight of the first HH:MM:SS stamp in
// name. Fields may also be separated by '+', as in file names that cannot
// contain colons.
func TimeOfDay(name string) (int, bool) {
	m := clockPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	s, _ := strconv.Atoi(m[3])
	return h*3600 + mm*60 + s, true
}

// ParseClock is TimeOfDay for user input, returning an error when no stamp is
// present.
func ParseClock(s string) (int, error) {
	secs, ok := TimeOfDay(s)
	if !ok {
		return 0, fmt.Errorf("invalid time %q, want HH:MM:SS", s)
	}
	return secs, nil
}
