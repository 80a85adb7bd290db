package handlers

import (
	"net/url"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerValidatorsOnce sync.Once

// RegisterValidators installs the custom binding validations used by the
// configuration DTO. Call it once during router setup, extra calls are
// no-ops.
func RegisterValidators() {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("ldapurl", validLDAPURL)
	})
}

// validLDAPURL accepts ldap:// and ldaps:// URLs with a host part.
func validLDAPURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return (u.Scheme == "ldap" || u.Scheme == "ldaps") && u.Host != ""
}
