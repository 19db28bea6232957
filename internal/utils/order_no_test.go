package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var orderNoPattern = regexp.MustCompile(`^AKX\d{14}\d{6}$`)

func TestGenerateOrderNoFormat(t *testing.T) {
	for i := 0; i < 10; i++ {
		no := GenerateOrderNo()
		assert.Len(t, no, 23)
		assert.Regexp(t, orderNoPattern, no)
	}
}
