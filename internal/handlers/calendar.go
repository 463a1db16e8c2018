package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/rendermarket/internal/services"
	"github.com/huangang/rendermarket/pkg/response"
)

type CalendarHandler struct {
	calendar *services.CalendarService
}

func NewCalendarHandler(calendar *services.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendar: calendar}
}

// Countries lists the holiday calendars profiles can pick for due dates
// GET /api/calendar/countries
func (h *CalendarHandler) Countries(c *gin.Context) {
	response.Success(c, h.calendar.SupportedCountries())
}
