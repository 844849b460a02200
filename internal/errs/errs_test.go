package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindThroughWrapping(t *testing.T) {
	base := Immutability("posted_transaction", "transaction %s is POSTED", "t1")
	wrapped := fmt.Errorf("editing entries: %w", base)

	assert.True(t, IsKind(wrapped, KindImmutability))
	assert.False(t, IsKind(wrapped, KindValidation))
	assert.Equal(t, "posted_transaction", RuleOf(wrapped))
	assert.Equal(t, "immutability [posted_transaction]: transaction t1 is POSTED", base.Error())
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.False(t, IsKind(nil, KindNotFound))
}

func TestNotFound(t *testing.T) {
	err := NotFound("account", "abc")
	assert.Equal(t, KindNotFound, err.Kind)
	assert.Contains(t, err.Error(), `account "abc" not found`)
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, KindValidation, Validation("r", "x").Kind)
	assert.Equal(t, KindConflict, Conflict("r", "x").Kind)
	assert.Equal(t, KindPolicy, Policy("r", "x").Kind)
}
