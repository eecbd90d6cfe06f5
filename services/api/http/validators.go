package http

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/gewaesserguete/digitale-gewaesserguete/services/api/dashboard"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// registerValidators adds the isodate and stationid binding tags to gin's
// validator. The result of the first call is returned on every call.
func registerValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("gin binding does not use go-playground/validator")
			return
		}
		if err := v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(dashboard.DateLayout, fl.Field().String())
			return err == nil
		}); err != nil {
			registerErr = fmt.Errorf("register isodate: %w", err)
			return
		}
		if err := v.RegisterValidation("stationid", func(fl validator.FieldLevel) bool {
			return dashboard.ValidStationID(fl.Field().String())
		}); err != nil {
			registerErr = fmt.Errorf("register stationid: %w", err)
		}
	})
	return registerErr
}
