package portal

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/luminous/portal/internal/domain/chat"
	"github.com/luminous/portal/internal/domain/identity"
	"github.com/luminous/portal/internal/domain/inbox"
	"github.com/luminous/portal/internal/domain/medication"
	"github.com/luminous/portal/internal/domain/records"
	"github.com/luminous/portal/internal/domain/scheduling"
	"github.com/luminous/portal/internal/platform/auth"
	"github.com/luminous/portal/internal/platform/blobstore"
	"github.com/luminous/portal/internal/platform/inflight"
	"github.com/luminous/portal/pkg/pagination"
)

type Handler struct {
	svc     *Service
	issuer  *auth.Issuer
	revoked *auth.TokenRevocationStore
}

func NewHandler(svc *Service, issuer *auth.Issuer, revoked *auth.TokenRevocationStore) *Handler {
	return &Handler{svc: svc, issuer: issuer, revoked: revoked}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/sessions", h.CreateSession)
	api.DELETE("/sessions", h.EndSession)

	api.GET("/view", h.GetView)
	api.POST("/navigate", h.Navigate)
	api.POST("/auth/signin", h.SignIn)
	api.POST("/auth/signup", h.SignUp)
	api.POST("/auth/signout", h.SignOut)

	api.GET("/scheduling/slots", h.GetSlots)
	api.POST("/scheduling/book", h.Book)
	api.POST("/calendar/month", h.ChangeMonth)
	api.POST("/calendar/date", h.SelectDate)
	api.POST("/calendar/time", h.SelectTime)
	api.POST("/calendar/service", h.SelectService)
	api.POST("/calendar/confirm", h.ConfirmBooking)

	api.GET("/appointments", h.ListAppointments)
	api.POST("/appointments/:id/cancel", h.CancelAppointment)
	api.PUT("/appointments/:id/notes", h.SaveNotes)

	api.GET("/medications", h.ListMedications)
	api.POST("/medications/:id/doses/:index/toggle", h.ToggleDose)

	api.GET("/records", h.ListRecords)
	api.POST("/records", h.UploadRecord)
	api.POST("/records/:id/select", h.SelectRecord)
	api.POST("/records/explanation", h.Explain)
	api.POST("/records/explanation/stop", h.StopAudio)
	api.DELETE("/records/explanation", h.CloseExplanation)
	api.GET("/records/explanation/audio", h.GetNarrationAudio)

	api.GET("/notifications", h.ListNotifications)
	api.POST("/notifications/:id/open", h.OpenNotification)
	api.POST("/notifications/read-all", h.MarkAllRead)
	api.GET("/notifications/export", h.ExportNotifications)

	api.GET("/chat", h.GetChat)
	api.POST("/chat/messages", h.SendChat)

	api.GET("/profile", h.GetProfile)
	api.POST("/profile/edit", h.StartEdit)
	api.PUT("/profile/draft", h.UpdateDraft)
	api.POST("/profile/save", h.SaveProfile)
	api.POST("/profile/cancel", h.CancelEdit)
	api.PUT("/profile/image", h.SetProfileImage)
	api.POST("/profile/push", h.TogglePush)
	api.POST("/profile/premium", h.UpgradePremium)
}

// errorStatus maps domain errors to HTTP status codes. Unlisted errors are
// internal.
var errorStatus = []struct {
	err    error
	status int
}{
	{ErrSessionNotFound, http.StatusUnauthorized},
	{ErrSignInRequired, http.StatusForbidden},
	{inflight.ErrBusy, http.StatusConflict},
	{ErrWrongView, http.StatusConflict},
	{ErrInvalidTransition, http.StatusConflict},
	{scheduling.ErrSlotTaken, http.StatusConflict},
	{scheduling.ErrNotUpcoming, http.StatusConflict},
	{identity.ErrNotEditing, http.StatusConflict},
	{ErrUnknownView, http.StatusBadRequest},
	{ErrUnsupportedLanguage, http.StatusBadRequest},
	{ErrNoRecordSelected, http.StatusBadRequest},
	{scheduling.ErrInvalidDate, http.StatusBadRequest},
	{scheduling.ErrPastDate, http.StatusBadRequest},
	{scheduling.ErrUnknownSlot, http.StatusBadRequest},
	{scheduling.ErrMissingTreatment, http.StatusBadRequest},
	{scheduling.ErrNoTimeSelected, http.StatusBadRequest},
	{medication.ErrDoseOutOfRange, http.StatusBadRequest},
	{identity.ErrInvalidAge, http.StatusBadRequest},
	{identity.ErrInvalidEmail, http.StatusBadRequest},
	{identity.ErrNotImage, http.StatusBadRequest},
	{chat.ErrEmptyMessage, http.StatusBadRequest},
	{blobstore.ErrMissingFileName, http.StatusBadRequest},
	{blobstore.ErrInvalidContentType, http.StatusUnsupportedMediaType},
	{blobstore.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
	{scheduling.ErrAppointmentNotFound, http.StatusNotFound},
	{medication.ErrMedicationNotFound, http.StatusNotFound},
	{records.ErrRecordNotFound, http.StatusNotFound},
	{inbox.ErrNotificationNotFound, http.StatusNotFound},
	{ErrNoNarration, http.StatusNotFound},
	{blobstore.ErrBlobNotFound, http.StatusNotFound},
}

func httpError(err error) error {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return echo.NewHTTPError(e.status, err.Error())
		}
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func sessionID(c echo.Context) string {
	if sid, ok := c.Get("session_id").(string); ok && sid != "" {
		return sid
	}
	return auth.SessionIDFromContext(c.Request().Context())
}

func respond[T any](c echo.Context, v T, err error) error {
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

// -- Sessions --

type sessionResponse struct {
	SessionID string     `json:"sessionId"`
	Token     string     `json:"token"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	View      ViewModel  `json:"view"`
}

func (h *Handler) CreateSession(c echo.Context) error {
	ctx := c.Request().Context()
	sid, vm, err := h.svc.CreateSession(ctx)
	if err != nil {
		return httpError(err)
	}
	token, claims, err := h.issuer.Issue(sid)
	if err != nil {
		h.svc.EndSession(ctx, sid)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := sessionResponse{SessionID: sid, Token: token, View: vm}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		resp.ExpiresAt = &exp
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *Handler) EndSession(c echo.Context) error {
	if claims := auth.ClaimsFromEcho(c); claims != nil && h.revoked != nil {
		h.revoked.Revoke(claims)
	}
	if err := h.svc.EndSession(c.Request().Context(), sessionID(c)); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Views and auth --

type navigateRequest struct {
	View string `json:"view"`
}

type signUpRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *Handler) GetView(c echo.Context) error {
	vm, err := h.svc.View(c.Request().Context(), sessionID(c))
	return respond(c, vm, err)
}

func (h *Handler) Navigate(c echo.Context) error {
	var req navigateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	v, err := ParseView(req.View)
	if err != nil {
		return httpError(err)
	}
	vm, err := h.svc.Navigate(c.Request().Context(), sessionID(c), v)
	return respond(c, vm, err)
}

func (h *Handler) SignIn(c echo.Context) error {
	vm, err := h.svc.SignIn(c.Request().Context(), sessionID(c))
	return respond(c, vm, err)
}

func (h *Handler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	vm, err := h.svc.SignUp(c.Request().Context(), sessionID(c), req.Name, req.Email)
	return respond(c, vm, err)
}

func (h *Handler) SignOut(c echo.Context) error {
	vm, err := h.svc.SignOut(c.Request().Context(), sessionID(c))
	return respond(c, vm, err)
}

// -- Scheduling --

type monthRequest struct {
	Offset int `json:"offset"`
}

type dateRequest struct {
	Date string `json:"date"`
}

type timeRequest struct {
	Time string `json:"time"`
}

type serviceRequest struct {
	Service string `json:"service"`
}

type notesRequest struct {
	VisitNotes string `json:"visitNotes"`
}

func (h *Handler) GetSlots(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "date is required")
	}
	slots, err := h.svc.Slots(c.Request().Context(), sessionID(c), date)
	if err != nil {
		return httpError(err)
	}
	available := make([]string, 0, len(slots))
	for _, s := range slots {
		if !s.Booked {
			available = append(available, s.Time)
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"date": date, "slots": slots, "available": available})
}

func (h *Handler) Book(c echo.Context) error {
	var req scheduling.BookingRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	appt, err := h.svc.Book(c.Request().Context(), sessionID(c), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) ChangeMonth(c echo.Context) error {
	var req monthRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	vm, err := h.svc.ChangeMonth(c.Request().Context(), sessionID(c), req.Offset)
	return respond(c, vm, err)
}

func (h *Handler) SelectDate(c echo.Context) error {
	var req dateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	vm, err := h.svc.SelectDate(c.Request().Context(), sessionID(c), req.Date)
	return respond(c, vm, err)
}

func (h *Handler) SelectTime(c echo.Context) error {
	var req timeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	vm, err := h.svc.SelectTime(c.Request().Context(), sessionID(c), req.Time)
	return respond(c, vm, err)
}

func (h *Handler) SelectService(c echo.Context) error {
	var req serviceRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	vm, err := h.svc.SelectService(c.Request().Context(), sessionID(c), req.Service)
	return respond(c, vm, err)
}

func (h *Handler) ConfirmBooking(c echo.Context) error {
	vm, err := h.svc.ConfirmBooking(c.Request().Context(), sessionID(c))
	return respond(c, vm, err)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	appts, err := h.svc.Appointments(c.Request().Context(), sessionID(c))
	if err != nil {
		return httpError(err)
	}
	if status := c.QueryParam("status"); status != "" {
		filtered := make([]scheduling.Appointment, 0, len(appts))
		for _, a := range appts {
			if string(a.Status) == status {
				filtered = append(filtered, a)
			}
		}
		appts = filtered
	}
	return c.JSON(http.StatusOK, pagination.Page(appts, pagination.FromContext(c)).WithLinks(c.Request().URL.Path))
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	appt, err := h.svc.CancelAppointment(c.Request().Context(), sessionID(c), c.Param("id"))
	return respond(c, appt, err)
}

func (h *Handler) SaveNotes(c echo.Context) error {
	var req notesRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	appt, err := h.svc.SaveNotes(c.Request().Context(), sessionID(c), c.Param("id"), req.VisitNotes)
	return respond(c, appt, err)
}

// -- Medications --

func (h *Handler) ListMedications(c echo.Context) error {
	meds, err := h.svc.Medications(c.Request().Context(), sessionID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(meds, pagination.FromContext(c)).WithLinks(c.Request().URL.Path))
}

func (h *Handler) ToggleDose(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid dose index")
	}
	med, err := h.svc.ToggleDose(c.Request().Context(), sessionID(c), c.Param("id"), index)
	return respond(c, med, err)
}

// -- Records --

type explainRequest struct {
	Language string `json:"language"`
}

func (h *Handler) ListRecords(c echo.Context) error {
	items, err := h.svc.Records(c.Request().Context(), sessionID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)).WithLinks(c.Request().URL.Path))
}

func (h *Handler) UploadRecord(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}
	defer f.Close()

	item, err := h.svc.UploadRecord(c.Request().Context(), sessionID(c), fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) SelectRecord(c echo.Context) error {
	vm, err := h.svc.SelectRecord(c.Request().Context(), sessionID(c), c.Param("id"))
	return respond(c, vm, err)
}

func (h *Handler) Explain(c echo.Context) error {
	var req explainRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	vm, err := h.svc.Explain(c.Request().Context(), sessionID(c), req.Language)
	return respond(c, vm, err)
}

func (h *Handler) StopAudio(c echo.Context) error {
	vm, err := h.svc.StopAudio(c.Request().Context(), sessionID(c))
	return respond(c, vm, err)
}

func (h *Handler) CloseExplanation(c echo.Context) error {
	vm, err := h.svc.CloseExplanation(c.Request().Context(), sessionID(c))
	return respond(c, vm, err)
}

func (h *Handler) GetNarrationAudio(c echo.Context) error {
	rc, meta, err := h.svc.NarrationAudio(c.Request().Context(), sessionID(c))
	if err != nil {
		return httpError(err)
	}
	defer rc.Close()
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s"`, meta.FileName))
	return c.Stream(http.StatusOK, meta.ContentType, rc)
}

// -- Notifications --

func (h *Handler) ListNotifications(c echo.Context) error {
	ns, err := h.svc.Notifications(c.Request().Context(), sessionID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(ns, pagination.FromContext(c)).WithLinks(c.Request().URL.Path))
}

func (h *Handler) OpenNotification(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	vm, err := h.svc.OpenNotification(c.Request().Context(), sessionID(c), id)
	return respond(c, vm, err)
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	ns, err := h.svc.MarkAllRead(c.Request().Context(), sessionID(c))
	return respond(c, ns, err)
}

func (h *Handler) ExportNotifications(c echo.Context) error {
	data, err := h.svc.ExportNotifications(c.Request().Context(), sessionID(c))
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, inbox.ExportFilename))
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
}

// -- Chat --

type chatRequest struct {
	Text string `json:"text"`
}

func (h *Handler) GetChat(c echo.Context) error {
	s, err := h.svc.Chat(c.Request().Context(), sessionID(c))
	return respond(c, s, err)
}

func (h *Handler) SendChat(c echo.Context) error {
	var req chatRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.svc.SendChat(c.Request().Context(), sessionID(c), req.Text)
	return respond(c, s, err)
}

// -- Profile --

func (h *Handler) GetProfile(c echo.Context) error {
	m, err := h.svc.Profile(c.Request().Context(), sessionID(c))
	return respond(c, m, err)
}

func (h *Handler) StartEdit(c echo.Context) error {
	m, err := h.svc.StartEdit(c.Request().Context(), sessionID(c))
	return respond(c, m, err)
}

func (h *Handler) UpdateDraft(c echo.Context) error {
	var patch identity.Patch
	if err := bind(c, &patch); err != nil {
		return err
	}
	m, err := h.svc.UpdateDraft(c.Request().Context(), sessionID(c), patch)
	return respond(c, m, err)
}

func (h *Handler) SaveProfile(c echo.Context) error {
	m, err := h.svc.SaveProfile(c.Request().Context(), sessionID(c))
	return respond(c, m, err)
}

func (h *Handler) CancelEdit(c echo.Context) error {
	m, err := h.svc.CancelEdit(c.Request().Context(), sessionID(c))
	return respond(c, m, err)
}

func (h *Handler) SetProfileImage(c echo.Context) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "image is required")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable image")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable image")
	}
	m, err := h.svc.SetProfileImage(c.Request().Context(), sessionID(c), fh.Header.Get("Content-Type"), data)
	return respond(c, m, err)
}

func (h *Handler) TogglePush(c echo.Context) error {
	m, err := h.svc.TogglePush(c.Request().Context(), sessionID(c))
	return respond(c, m, err)
}

func (h *Handler) UpgradePremium(c echo.Context) error {
	m, err := h.svc.UpgradePremium(c.Request().Context(), sessionID(c))
	return respond(c, m, err)
}
