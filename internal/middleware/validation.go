package middleware

import (
	"github.com/gin-gonic/gin/binding"

	"github.com/jwalitptl/encounter-api/pkg/validator"
)

// InstallValidator makes gin's binding use the shared rule set, so bind
// failures carry the same field names as service validation.
func InstallValidator() {
	binding.Validator = validator.New()
}
