package models

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestInvocationRequestIDAllowsRepeats(t *testing.T) {
	s, err := schema.Parse(&Invocation{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	idx := s.LookIndex("idx_invocations_request_id")
	require.NotNil(t, idx)
	assert.NotEqual(t, "UNIQUE", idx.Class)

	field := s.LookUpField("request_id")
	require.NotNil(t, field)
	assert.False(t, field.Unique)
}
