package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/middleware"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/models"
	appErrors "github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func principalFromContext(c *gin.Context) (models.Principal, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return models.Principal{}, appErrors.ErrUnauthorized
	}
	return claims.Principal(), nil
}

func bindError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}
