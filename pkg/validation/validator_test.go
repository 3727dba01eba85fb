package validation

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type aliasedPayload struct {
	Password string `json:"password" binding:"required,pwd"`
	Role     string `json:"role" binding:"required,role"`
	Type     string `json:"type" binding:"required,invtype"`
}

func TestInitRegistersAliasesOnBindingEngine(t *testing.T) {
	Init()

	err := binding.Validator.ValidateStruct(aliasedPayload{
		Password: "longenough1",
		Role:     "teacher",
		Type:     "trial",
	})
	require.NoError(t, err)
}

func TestAliasViolationsUseJSONFieldNames(t *testing.T) {
	Init()

	err := binding.Validator.ValidateStruct(aliasedPayload{
		Password: "short",
		Role:     "king",
		Type:     "raffle",
	})
	require.Error(t, err)

	details := ToDetails(err)
	assert.Contains(t, details["password"], "at least")
	assert.Contains(t, details["role"], "must be one of")
	assert.Contains(t, details["type"], "must be one of")
}
