package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medbook/internal/domain"
)

// @Summary Мой шаблон расписания
// @Tags Расписание
// @Produce json
// @Success 200 {object} domain.ScheduleTemplate "Шаблон расписания"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Security ApiKeyAuth
// @Router /schedules/me [get]
func (h *Handler) getMySchedule(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	doctor, err := h.services.Doctor.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		domainErrorResponse(c, err)
		return
	}

	template, err := h.services.Schedule.GetTemplate(c.Request.Context(), doctor.ID)
	if err != nil {
		domainErrorResponse(c, err)
		return
	}

	successResponse(c, http.StatusOK, template)
}

// @Summary Заменить шаблон расписания
// @Description Атомарно заменяет все правила и исключения шаблона
// @Tags Расписание
// @Accept json
// @Produce json
// @Param input body domain.ReplaceTemplateDTO true "Новый шаблон"
// @Success 200 {object} messageResponseType "Шаблон сохранен"
// @Failure 400 {object} errorResponseBody "Ошибка валидации"
// @Security ApiKeyAuth
// @Router /schedules [put]
func (h *Handler) replaceSchedule(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var req domain.ReplaceTemplateDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("неверный формат данных", zap.Error(err))
		badRequestResponse(c, "неверный формат данных")
		return
	}

	if err := h.services.Schedule.ReplaceTemplate(c.Request.Context(), actor, req); err != nil {
		domainErrorResponse(c, err)
		return
	}

	messageResponse(c, http.StatusOK, "шаблон расписания сохранен")
}

// @Summary Сохранить правило на день недели
// @Description Создает или заменяет правило доступности на день недели
// @Tags Расписание
// @Accept json
// @Produce json
// @Param input body domain.WeeklyRuleDTO true "Правило"
// @Success 200 {object} map[string]interface{} "ID правила"
// @Failure 400 {object} errorResponseBody "Ошибка валидации"
// @Security ApiKeyAuth
// @Router /schedules/rules [post]
func (h *Handler) upsertWeeklyRule(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var req domain.WeeklyRuleDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("неверный формат данных", zap.Error(err))
		badRequestResponse(c, "неверный формат данных")
		return
	}

	id, err := h.services.Schedule.UpsertWeeklyRule(c.Request.Context(), actor, req)
	if err != nil {
		domainErrorResponse(c, err)
		return
	}

	successResponse(c, http.StatusOK, gin.H{"id": id})
}

// @Summary Удалить правило на день недели
// @Tags Расписание
// @Produce json
// @Param day path string true "День недели" Enums(Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday)
// @Success 200 {object} messageResponseType "Правило удалено"
// @Failure 404 {object} errorResponseBody "Правило не найдено"
// @Security ApiKeyAuth
// @Router /schedules/rules/{day} [delete]
func (h *Handler) deleteWeeklyRule(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	if err := h.services.Schedule.DeleteWeeklyRule(c.Request.Context(), actor, c.Param("day")); err != nil {
		domainErrorResponse(c, err)
		return
	}

	messageResponse(c, http.StatusOK, "правило удалено")
}

// @Summary Добавить исключенную дату
// @Tags Расписание
// @Accept json
// @Produce json
// @Param input body domain.ExceptionDateDTO true "Дата и причина"
// @Success 200 {object} map[string]interface{} "ID исключения"
// @Failure 400 {object} errorResponseBody "Неверный формат даты"
// @Security ApiKeyAuth
// @Router /schedules/exceptions [post]
func (h *Handler) addExceptionDate(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var req domain.ExceptionDateDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestResponse(c, "неверный формат данных")
		return
	}

	id, err := h.services.Schedule.AddExceptionDate(c.Request.Context(), actor, req)
	if err != nil {
		domainErrorResponse(c, err)
		return
	}

	successResponse(c, http.StatusOK, gin.H{"id": id})
}

// @Summary Убрать исключенную дату
// @Tags Расписание
// @Produce json
// @Param date path string true "Дата в формате YYYY-MM-DD"
// @Success 200 {object} messageResponseType "Исключение убрано"
// @Failure 404 {object} errorResponseBody "Исключение не найдено"
// @Security ApiKeyAuth
// @Router /schedules/exceptions/{date} [delete]
func (h *Handler) removeExceptionDate(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	if err := h.services.Schedule.RemoveExceptionDate(c.Request.Context(), actor, c.Param("date")); err != nil {
		domainErrorResponse(c, err)
		return
	}

	messageResponse(c, http.StatusOK, "исключение убрано")
}
