package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-reservation/services"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

// AdminController serves owner and staff operations under /admin.
type AdminController struct {
	Core *services.Core
}

func NewAdminController(core *services.Core) *AdminController {
	return &AdminController{Core: core}
}

// ListReservations -> GET /admin/restaurants/:id/reservations?date=YYYY-MM-DD
func (ac *AdminController) ListReservations(c *gin.Context) {
	restaurantID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || restaurantID == 0 {
		utils.RespondErrorCode(c, http.StatusBadRequest, services.CodeValidationFailed, "invalid restaurant id")
		return
	}

	rows, err := ac.Core.Holds.ListHolds(c.Request.Context(), uint(restaurantID), c.Query("date"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of reservations", rows)
}

// UpdateStatus -> PATCH /admin/reservations/:id/status, same policy as customers.
func (ac *AdminController) UpdateStatus(c *gin.Context) {
	cancelReservation(c, ac.Core)
}

// Complete -> POST /admin/reservations/:id/complete
func (ac *AdminController) Complete(c *gin.Context) {
	res, err := ac.Core.CheckIn.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation completed", res)
}

// Sweep -> POST /admin/reservations/sweep
func (ac *AdminController) Sweep(c *gin.Context) {
	n, err := ac.Core.Sweeper.SweepOnce(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Sweep finished", gin.H{"expired": n})
}
