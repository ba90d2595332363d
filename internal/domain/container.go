package domain

import (
	"fmt"
	"strings"
	"time"
)

// Physical length class of a container. It decides how many sub-slots
// a container occupies.
type LengthClass int

const (
	Length20 LengthClass = 20
	Length40 LengthClass = 40
	Length45 LengthClass = 45
)

// FullLength reports whether the container spans the whole bay position.
func (l LengthClass) FullLength() bool { return l == Length40 || l == Length45 }

func (l LengthClass) Valid() bool {
	return l == Length20 || l == Length40 || l == Length45
}

func (l LengthClass) String() string { return fmt.Sprintf("%dft", int(l)) }

type ContainerStatus string

const (
	StatusLaden ContainerStatus = "laden"
	StatusEmpty ContainerStatus = "empty"
)

func ParseContainerStatus(raw string) (ContainerStatus, error) {
	switch s := ContainerStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusLaden, StatusEmpty:
		return s, nil
	default:
		return "", fmt.Errorf("parse container status: unknown status %q", raw)
	}
}

// Equipment group from the third character of an ISO 6346 size-type code.
type CargoGroup string

const (
	GroupGeneral  CargoGroup = "general"
	GroupReefer   CargoGroup = "reefer"
	GroupOpenTop  CargoGroup = "open_top"
	GroupTank     CargoGroup = "tank"
	GroupPlatform CargoGroup = "platform"
	GroupOther    CargoGroup = "other"
)

// Decoded ISO 6346 size-type code, e.g. "22G1" or "45R1".
type ISOType struct {
	Code     string
	Length   LengthClass
	HighCube bool
	Group    CargoGroup
}

// ParseISOType decodes the length, height and group of a size-type code.
// Only the length is mandatory for placement; an unknown length code is an error.
// Lengths the yard has no slot for, such as M (48ft), are unknown.
func ParseISOType(raw string) (ISOType, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != 4 {
		return ISOType{}, fmt.Errorf("parse iso type %q: expected 4 characters", raw)
	}

	t := ISOType{Code: code}

	switch code[0] {
	case '2':
		t.Length = Length20
	case '4':
		t.Length = Length40
	case 'L':
		t.Length = Length45
	default:
		return ISOType{}, fmt.Errorf("parse iso type %q: unsupported length code %q", raw, code[0])
	}

	t.HighCube = code[1] == '5'

	switch code[2] {
	case 'G', 'V':
		t.Group = GroupGeneral
	case 'R', 'H':
		t.Group = GroupReefer
	case 'U':
		t.Group = GroupOpenTop
	case 'T':
		t.Group = GroupTank
	case 'P':
		t.Group = GroupPlatform
	default:
		t.Group = GroupOther
	}

	return t, nil
}

// A container waiting for (or holding) a yard slot.
// Attributes come from the container registry owned by terminal operations.
type Container struct {
	ContainerID     int64
	ContainerNumber string
	ISOType         string
	Status          ContainerStatus
	DwellTime       time.Duration
}
