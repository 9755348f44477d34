package handler

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/apierror"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/domain"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/middleware"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON inválido: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// currentOperator rebuilds the acting operator from the JWT claims. The token
// already carries everything authorization needs; no store round-trip.
func currentOperator(c *gin.Context) *model.Operator {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return nil
	}
	id, _ := uuid.Parse(claims.UserID)
	return &model.Operator{
		ID:       id,
		Username: claims.Username,
		Role:     claims.Perfil,
		Active:   true,
	}
}

// respondError maps domain sentinel errors onto HTTP statuses with the
// standard detail envelope.
func respondError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrTableLocked),
		errors.Is(err, domain.ErrDuplicateSubmission),
		errors.Is(err, domain.ErrDuplicateOpenSession):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrStorageError):
		status = http.StatusInternalServerError
	}
	c.JSON(status, apierror.New(err.Error()))
}
