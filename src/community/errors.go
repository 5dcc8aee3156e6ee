package community

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfig marks configuration errors raised at the API boundary: an empty
// organism list, an organism without objective, a bad abundance map.
var ErrConfig = errors.New("invalid community configuration")

// UnknownOrganismError reports organism identifiers that are not part of the
// community, together with the valid ones.
type UnknownOrganismError struct {
	Unknown []string
	Valid   []string
}

func (e *UnknownOrganismError) Error() string {
	return fmt.Sprintf("unknown organisms [%s], valid organisms are [%s]",
		strings.Join(e.Unknown, ", "), strings.Join(e.Valid, ", "))
}

func (e *UnknownOrganismError) Unwrap() error {
	return ErrConfig
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
