package rest

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medbook/internal/domain"
)

const maxPhotoSize = 5 << 20 // 5 МБ

// @Summary Каталог врачей
// @Description Возвращает одобренных врачей с фильтрацией по специализации и рейтингу
// @Tags Врачи
// @Produce json
// @Param specialization query string false "Специализация"
// @Param min_rating query number false "Минимальный рейтинг"
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {object} paginatedResponse "Врачи"
// @Router /doctors [get]
func (h *Handler) getDoctors(c *gin.Context) {
	limit, offset := parsePagination(c)

	filter := domain.DoctorFilter{
		Limit:  limit,
		Offset: offset,
	}

	if spec := c.Query("specialization"); spec != "" {
		filter.Specialization = &spec
	}
	if ratingStr := c.Query("min_rating"); ratingStr != "" {
		if rating, err := strconv.ParseFloat(ratingStr, 64); err == nil {
			filter.MinRating = &rating
		}
	}

	doctors, total, err := h.services.Doctor.List(c.Request.Context(), filter)
	if err != nil {
		domainErrorResponse(c, err)
		return
	}

	paginatedSuccessResponse(c, doctors, total, offset/limit+1, limit)
}

// @Summary Получить врача по ID
// @Tags Врачи
// @Produce json
// @Param id path int true "ID врача"
// @Success 200 {object} domain.Doctor "Профиль врача"
// @Failure 404 {object} errorResponseBody "Врач не найден"
// @Router /doctors/{id} [get]
func (h *Handler) getDoctorByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequestResponse(c, "неверный формат ID")
		return
	}

	doctor, err := h.services.Doctor.GetByID(c.Request.Context(), id)
	if err != nil {
		domainErrorResponse(c, err)
		return
	}

	successResponse(c, http.StatusOK, doctor)
}

// @Summary Профиль врача текущего пользователя
// @Tags Врачи
// @Produce json
// @Success 200 {object} domain.Doctor "Профиль врача"
// @Failure 404 {object} errorResponseBody "Профиль не найден"
// @Security ApiKeyAuth
// @Router /doctors/me [get]
func (h *Handler) getMyDoctorProfile(c *gin.Context) {
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

	successResponse(c, http.StatusOK, doctor)
}

// @Summary Слоты врача на дату
// @Description Возвращает сетку слотов врача на дату с признаком занятости
// @Tags Врачи
// @Produce json
// @Param id path int true "ID врача"
// @Param date query string true "Дата в формате YYYY-MM-DD"
// @Success 200 {array} domain.Slot "Слоты"
// @Failure 400 {object} errorResponseBody "Неверный формат даты"
// @Failure 404 {object} errorResponseBody "Врач не найден"
// @Router /doctors/{id}/slots [get]
func (h *Handler) getDoctorSlots(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequestResponse(c, "неверный формат ID")
		return
	}

	date := c.Query("date")
	if date == "" {
		badRequestResponse(c, "не указана дата")
		return
	}

	slots, err := h.services.Schedule.GetDaySlots(c.Request.Context(), id, date)
	if err != nil {
		domainErrorResponse(c, err)
		return
	}

	successResponse(c, http.StatusOK, slots)
}

// @Summary Шаблон расписания врача
// @Tags Врачи
// @Produce json
// @Param id path int true "ID врача"
// @Success 200 {object} domain.ScheduleTemplate "Шаблон расписания"
// @Failure 404 {object} errorResponseBody "Врач не найден"
// @Router /doctors/{id}/schedule [get]
func (h *Handler) getDoctorSchedule(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequestResponse(c, "неверный формат ID")
		return
	}

	template, err := h.services.Schedule.GetTemplate(c.Request.Context(), id)
	if err != nil {
		domainErrorResponse(c, err)
		return
	}

	successResponse(c, http.StatusOK, template)
}

// @Summary Создать профиль врача
// @Description Создает профиль врача для текущего пользователя, профиль попадает на модерацию
// @Tags Врачи
// @Accept json
// @Produce json
// @Param input body domain.CreateDoctorDTO true "Данные профиля"
// @Success 201 {object} map[string]interface{} "ID созданного профиля"
// @Failure 400 {object} errorResponseBody "Ошибка валидации"
// @Security ApiKeyAuth
// @Router /doctors [post]
func (h *Handler) createDoctor(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var req domain.CreateDoctorDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("неверный формат данных", zap.Error(err))
		badRequestResponse(c, "неверный формат данных")
		return
	}

	id, err := h.services.Doctor.Create(c.Request.Context(), actor, req)
	if err != nil {
		domainErrorResponse(c, err)
		return
	}

	createdResponse(c, gin.H{"id": id})
}

// @Summary Обновить профиль врача
// @Tags Врачи
// @Accept json
// @Produce json
// @Param id path int true "ID врача"
// @Param input body domain.UpdateDoctorDTO true "Изменяемые поля"
// @Success 200 {object} messageResponseType "Профиль обновлен"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Security ApiKeyAuth
// @Router /doctors/{id} [put]
func (h *Handler) updateDoctor(c *gin.Context) {
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

	var req domain.UpdateDoctorDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestResponse(c, "неверный формат данных")
		return
	}

	if err := h.services.Doctor.Update(c.Request.Context(), actor, id, req); err != nil {
		domainErrorResponse(c, err)
		return
	}

	messageResponse(c, http.StatusOK, "профиль обновлен")
}

// @Summary Загрузить фотографию врача
// @Tags Врачи
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "ID врача"
// @Param photo formData file true "Фотография"
// @Success 200 {object} messageResponseType "Фотография загружена"
// @Security ApiKeyAuth
// @Router /doctors/{id}/photo [post]
func (h *Handler) uploadDoctorPhoto(c *gin.Context) {
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

	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		badRequestResponse(c, "файл не найден в запросе")
		return
	}
	defer file.Close()

	if header.Size > maxPhotoSize {
		badRequestResponse(c, "размер файла превышает 5 МБ")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("ошибка чтения файла", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, "ошибка чтения файла")
		return
	}

	if err := h.services.Doctor.UploadProfilePhoto(c.Request.Context(), actor, id, data, header.Filename); err != nil {
		domainErrorResponse(c, err)
		return
	}

	messageResponse(c, http.StatusOK, "фотография загружена")
}

// @Summary Удалить фотографию врача
// @Tags Врачи
// @Produce json
// @Param id path int true "ID врача"
// @Success 200 {object} messageResponseType "Фотография удалена"
// @Security ApiKeyAuth
// @Router /doctors/{id}/photo [delete]
func (h *Handler) deleteDoctorPhoto(c *gin.Context) {
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

	if err := h.services.Doctor.DeleteProfilePhoto(c.Request.Context(), actor, id); err != nil {
		domainErrorResponse(c, err)
		return
	}

	messageResponse(c, http.StatusOK, "фотография удалена")
}

// @Summary Статистика врача
// @Tags Врачи
// @Produce json
// @Param id path int true "ID врача"
// @Success 200 {object} domain.DoctorStats "Статистика"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Security ApiKeyAuth
// @Router /doctors/{id}/stats [get]
func (h *Handler) getDoctorStats(c *gin.Context) {
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

	stats, err := h.services.Doctor.GetStats(c.Request.Context(), actor, id)
	if err != nil {
		domainErrorResponse(c, err)
		return
	}

	successResponse(c, http.StatusOK, stats)
}

// @Summary Сводка для администратора
// @Tags Администрирование
// @Produce json
// @Success 200 {object} domain.AdminOverview "Сводка"
// @Security ApiKeyAuth
// @Router /admin/overview [get]
func (h *Handler) getAdminOverview(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	overview, err := h.services.Doctor.GetAdminOverview(c.Request.Context(), actor)
	if err != nil {
		domainErrorResponse(c, err)
		return
	}

	successResponse(c, http.StatusOK, overview)
}

// @Summary Врачи на модерации
// @Tags Администрирование
// @Produce json
// @Param status query string false "Статус модерации" Enums(pending, approved, rejected)
// @Success 200 {object} paginatedResponse "Врачи"
// @Security ApiKeyAuth
// @Router /admin/doctors [get]
func (h *Handler) getDoctorsForModeration(c *gin.Context) {
	limit, offset := parsePagination(c)

	status := domain.DoctorApprovalStatus(c.DefaultQuery("status", "pending"))
	filter := domain.DoctorFilter{
		ApprovalStatus: &status,
		Limit:          limit,
		Offset:         offset,
	}

	doctors, total, err := h.services.Doctor.List(c.Request.Context(), filter)
	if err != nil {
		domainErrorResponse(c, err)
		return
	}

	paginatedSuccessResponse(c, doctors, total, offset/limit+1, limit)
}

// @Summary Одобрить профиль врача
// @Tags Администрирование
// @Produce json
// @Param id path int true "ID врача"
// @Success 200 {object} messageResponseType "Профиль одобрен"
// @Security ApiKeyAuth
// @Router /admin/doctors/{id}/approve [post]
func (h *Handler) approveDoctor(c *gin.Context) {
	h.moderateDoctor(c, domain.DoctorApprovalApproved, "профиль врача одобрен")
}

// @Summary Отклонить профиль врача
// @Tags Администрирование
// @Produce json
// @Param id path int true "ID врача"
// @Success 200 {object} messageResponseType "Профиль отклонен"
// @Security ApiKeyAuth
// @Router /admin/doctors/{id}/reject [post]
func (h *Handler) rejectDoctor(c *gin.Context) {
	h.moderateDoctor(c, domain.DoctorApprovalRejected, "профиль врача отклонен")
}

func (h *Handler) moderateDoctor(c *gin.Context, status domain.DoctorApprovalStatus, message string) {
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

	if err := h.services.Doctor.SetApprovalStatus(c.Request.Context(), actor, id, status); err != nil {
		domainErrorResponse(c, err)
		return
	}

	messageResponse(c, http.StatusOK, message)
}
