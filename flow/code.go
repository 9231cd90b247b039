package flow

import (
	"fmt"
	"strconv"
)

const codeDigits = 6

// SplitCode validates a 6-digit pickup/send code and splits it into the
// front-three and rear-three register values. Invalid codes are
// rejected before anything touches a register.
func SplitCode(code string) (front, rear uint16, err error) {
	if len(code) != codeDigits {
		return 0, 0, fmt.Errorf("%w: %q is not %d digits", ErrInvalidCode, code, codeDigits)
	}

	for _, c := range code {
		if c < '0' || c > '9' {
			return 0, 0, fmt.Errorf("%w: %q contains a non-digit", ErrInvalidCode, code)
		}
	}

	f, _ := strconv.Atoi(code[:codeDigits/2])
	r, _ := strconv.Atoi(code[codeDigits/2:])

	return uint16(f), uint16(r), nil
}

// JoinCode recombines the two register halves into the 6-digit code.
func JoinCode(front, rear uint16) string {
	return fmt.Sprintf("%03d%03d", front, rear)
}