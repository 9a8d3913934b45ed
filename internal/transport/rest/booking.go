package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medbook/internal/domain"
)

// @Summary Создать запись на прием
// @Description Создает запись в статусе pending, слот проверяется по расписанию врача
// @Tags Записи
// @Accept json
// @Produce json
// @Param input body domain.CreateBookingDTO true "Данные записи"
// @Success 201 {object} map[string]interface{} "ID созданной записи"
// @Failure 400 {object} errorResponseBody "Недопустимый слот"
// @Failure 409 {object} errorResponseBody "Слот уже занят"
// @Security ApiKeyAuth
// @Router /bookings [post]
func (h *Handler) createBooking(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var req domain.CreateBookingDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("неверный формат данных", zap.Error(err))
		badRequestResponse(c, "неверный формат данных")
		return
	}

	id, err := h.services.Booking.Create(c.Request.Context(), actor, req)
	if err != nil {
		domainErrorResponse(c, err)
		return
	}

	createdResponse(c, gin.H{"id": id})
}

// @Summary Список записей
// @Description Пациент видит свои записи, врач свои, администратор любые
// @Tags Записи
// @Produce json
// @Param status query string false "Статус записи" Enums(pending, approved, completed, cancelled)
// @Param date_from query string false "Дата с (YYYY-MM-DD)"
// @Param date_to query string false "Дата по (YYYY-MM-DD)"
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {object} paginatedResponse "Записи"
// @Security ApiKeyAuth
// @Router /bookings [get]
func (h *Handler) getBookings(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	limit, offset := parsePagination(c)
	filter := domain.BookingFilter{
		Limit:  limit,
		Offset: offset,
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := domain.BookingStatus(statusStr)
		filter.Status = &status
	}
	if from := c.Query("date_from"); from != "" {
		if parsed, err := time.Parse("2006-01-02", from); err == nil {
			filter.StartDate = &parsed
		}
	}
	if to := c.Query("date_to"); to != "" {
		if parsed, err := time.Parse("2006-01-02", to); err == nil {
			endOfDay := parsed.Add(24*time.Hour - time.Second)
			filter.EndDate = &endOfDay
		}
	}

	bookings, total, err := h.services.Booking.List(c.Request.Context(), actor, filter)
	if err != nil {
		domainErrorResponse(c, err)
		return
	}

	paginatedSuccessResponse(c, bookings, total, offset/limit+1, limit)
}

// @Summary Получить запись по ID
// @Tags Записи
// @Produce json
// @Param id path int true "ID записи"
// @Success 200 {object} domain.Booking "Данные записи"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 404 {object} errorResponseBody "Запись не найдена"
// @Security ApiKeyAuth
// @Router /bookings/{id} [get]
func (h *Handler) getBookingByID(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequestResponse(c, "неверный формат ID")
		return
	}

	booking, err := h.services.Booking.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		domainErrorResponse(c, err)
		return
	}

	successResponse(c, http.StatusOK, booking)
}

// @Summary Перенести запись
// @Description Переносит активную запись на другой слот того же врача
// @Tags Записи
// @Accept json
// @Produce json
// @Param id path int true "ID записи"
// @Param input body domain.RescheduleBookingDTO true "Новые дата и время"
// @Success 200 {object} messageResponseType "Запись перенесена"
// @Failure 409 {object} errorResponseBody "Слот занят или запись не активна"
// @Security ApiKeyAuth
// @Router /bookings/{id} [put]
func (h *Handler) rescheduleBooking(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequestResponse(c, "неверный формат ID")
		return
	}

	var req domain.RescheduleBookingDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestResponse(c, "неверный формат данных")
		return
	}

	if err := h.services.Booking.Reschedule(c.Request.Context(), actor, id, req); err != nil {
		domainErrorResponse(c, err)
		return
	}

	messageResponse(c, http.StatusOK, "запись перенесена")
}

// @Summary Отменить запись
// @Tags Записи
// @Accept json
// @Produce json
// @Param id path int true "ID записи"
// @Param input body domain.CancelBookingDTO false "Причина отмены"
// @Success 200 {object} messageResponseType "Запись отменена"
// @Failure 409 {object} errorResponseBody "Запись уже завершена или отменена"
// @Security ApiKeyAuth
// @Router /bookings/{id} [delete]
func (h *Handler) cancelBooking(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequestResponse(c, "неверный формат ID")
		return
	}

	var req domain.CancelBookingDTO
	_ = c.ShouldBindJSON(&req)

	if err := h.services.Booking.Cancel(c.Request.Context(), actor, id, req); err != nil {
		domainErrorResponse(c, err)
		return
	}

	messageResponse(c, http.StatusOK, "запись отменена")
}

// @Summary Подтвердить запись
// @Description Врач подтверждает запись в статусе pending
// @Tags Записи
// @Produce json
// @Param id path int true "ID записи"
// @Success 200 {object} messageResponseType "Запись подтверждена"
// @Failure 409 {object} errorResponseBody "Запись не в статусе pending"
// @Security ApiKeyAuth
// @Router /bookings/{id}/approve [post]
func (h *Handler) approveBooking(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequestResponse(c, "неверный формат ID")
		return
	}

	if err := h.services.Booking.Approve(c.Request.Context(), actor, id); err != nil {
		domainErrorResponse(c, err)
		return
	}

	messageResponse(c, http.StatusOK, "запись подтверждена")
}

// @Summary Завершить прием
// @Description Врач завершает прием и сохраняет заметки о визите
// @Tags Записи
// @Accept json
// @Produce json
// @Param id path int true "ID записи"
// @Param input body domain.CompleteBookingDTO false "Заметки о визите"
// @Success 200 {object} messageResponseType "Прием завершен"
// @Failure 409 {object} errorResponseBody "Запись уже завершена или отменена"
// @Security ApiKeyAuth
// @Router /bookings/{id}/complete [post]
func (h *Handler) completeBooking(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequestResponse(c, "неверный формат ID")
		return
	}

	var req domain.CompleteBookingDTO
	_ = c.ShouldBindJSON(&req)

	if err := h.services.Booking.Complete(c.Request.Context(), actor, id, req); err != nil {
		domainErrorResponse(c, err)
		return
	}

	messageResponse(c, http.StatusOK, "прием завершен")
}

// @Summary Квитанция по записи
// @Description Возвращает PDF-квитанцию по записи на прием
// @Tags Записи
// @Produce application/pdf
// @Param id path int true "ID записи"
// @Success 200 {file} binary "PDF квитанция"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Failure 404 {object} errorResponseBody "Запись не найдена"
// @Security ApiKeyAuth
// @Router /bookings/{id}/receipt [get]
func (h *Handler) getBookingReceipt(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequestResponse(c, "неверный формат ID")
		return
	}

	data, filename, err := h.services.Docs.GenerateReceipt(c.Request.Context(), actor, id)
	if err != nil {
		domainErrorResponse(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}
