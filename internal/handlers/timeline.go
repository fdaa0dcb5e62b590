package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"cadence/internal/store"
)

// ContactTimelineHandler returns a contact's chronological timeline
// @Summary Get contact timeline
// @Description Returns the ordered timeline events projected for a contact
// @Tags contacts
// @Produce json
// @Param contactID path string true "Contact ID"
// @Success 200 {array} models.ContactTimelineEvent
// @Failure 500 {object} map[string]string
// @Router /api/contacts/{contactID}/timeline [get]
func ContactTimelineHandler(st *store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		contactID := c.Param("contactID")

		events, err := st.ListTimeline(c.Request().Context(), contactID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": err.Error(),
			})
		}
		return c.JSON(http.StatusOK, events)
	}
}

// SubjectInsightsHandler returns stored insights for a subject
// @Summary List insights for a subject
// @Description Returns stored AI insights for a contact or interaction
// @Tags insights
// @Produce json
// @Param subjectType path string true "Subject type (contact or interaction)"
// @Param subjectID path string true "Subject ID"
// @Success 200 {array} models.Insight
// @Failure 500 {object} map[string]string
// @Router /api/insights/{subjectType}/{subjectID} [get]
func SubjectInsightsHandler(st *store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		subjectType := c.Param("subjectType")
		subjectID := c.Param("subjectID")

		insights, err := st.ListInsightsForSubject(c.Request().Context(), subjectType, subjectID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": err.Error(),
			})
		}
		return c.JSON(http.StatusOK, insights)
	}
}
