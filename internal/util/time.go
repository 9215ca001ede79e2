package util

import "time"

// Now devolve o instante atual em UTC.
func Now() time.Time {
	return time.Now().UTC()
}
