package ordersserver

import (
	"github.com/gin-gonic/gin"

	ordershttpmapper "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/adapters/http/mapper"
	apierrors "github.com/seboge-Atlegang/part3Cloud/internal/shared/errors"
)

var responder = apierrors.NewResponder("", ordershttpmapper.ProblemFromError)

// respondError answers transport-level failures (bad JSON, bad params).
func respondError(c *gin.Context, status int, err error) {
	responder.RespondStatus(c, status, err)
}

func respondServiceError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	responder.RespondError(c, err)
}
