package chassis

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Role identifies one corner of the chassis.
type Role int

const (
	FrontLeft Role = iota
	FrontRight
	BackLeft
	BackRight
)

// AllRoles in the order used for logging and config.
var AllRoles = []Role{FrontLeft, FrontRight, BackLeft, BackRight}

var roleTable = [...]struct {
	name   string
	short  string
	sx, sy float64
}{
	FrontLeft:  {"front-left", "fl", -1, 1},
	FrontRight: {"front-right", "fr", 1, 1},
	BackLeft:   {"back-left", "bl", -1, -1},
	BackRight:  {"back-right", "br", 1, -1},
}

func (r Role) Valid() bool {
	return r >= FrontLeft && r <= BackRight
}

func (r Role) signs() (sx, sy float64) {
	if !r.Valid() {
		return 0, 0
	}
	e := roleTable[r]
	return e.sx, e.sy
}

func (r Role) String() string {
	if !r.Valid() {
		return fmt.Sprintf("unknown(%d)", int(r))
	}
	return roleTable[r].name
}

// Short is the two letter name used in config files and on the command line.
func (r Role) Short() string {
	if !r.Valid() {
		return "??"
	}
	return roleTable[r].short
}

// ParseRole accepts either the short or long form, case insensitive.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, r := range AllRoles {
		if s == roleTable[r].short || s == roleTable[r].name {
			return r, nil
		}
	}
	return 0, errors.Errorf("unknown module %q (want one of fl, fr, bl, br)", s)
}
