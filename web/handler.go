package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tripsplit/auth"
	dbt "tripsplit/db/db"
	"tripsplit/mq/mq"
	"tripsplit/trip"
)

const dateLayout = "2006-01-02"

// Handler exposes the trip lifecycle over JSON endpoints.
type Handler struct {
	svc    *trip.Service
	mq     mq.TripMessageQueueWrapper
	trips  dbt.TripDBWrapper
	users  dbt.UserDBWrapper
	authn  *auth.PasswordAuthenticator
	tokens *auth.JWTManager
}

func NewHandler(
	svc *trip.Service,
	mqWrapper mq.TripMessageQueueWrapper,
	trips dbt.TripDBWrapper,
	users dbt.UserDBWrapper,
	authn *auth.PasswordAuthenticator,
	tokens *auth.JWTManager,
) *Handler {
	return &Handler{
		svc:    svc,
		mq:     mqWrapper,
		trips:  trips,
		users:  users,
		authn:  authn,
		tokens: tokens,
	}
}

func currentUserID(c *gin.Context) uuid.UUID {
	id, _ := c.MustGet(userIDKey).(uuid.UUID)
	return id
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps a lifecycle error onto an HTTP status. Anything that is
// not a *trip.Error is an infrastructure failure and stays opaque.
func writeError(c *gin.Context, err error) {
	var te *trip.Error
	if errors.As(err, &te) {
		status := http.StatusInternalServerError
		switch te.Kind {
		case trip.KindValidation:
			status = http.StatusBadRequest
		case trip.KindNotFound:
			status = http.StatusNotFound
		case trip.KindForbidden, trip.KindNotParticipant:
			status = http.StatusForbidden
		case trip.KindAlreadyMember, trip.KindAlreadyPaid, trip.KindIncomplete, trip.KindNotEnded:
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": te.Message, "kind": te.Kind.String()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

type userJSON struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

type tripJSON struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Code     string    `json:"code"`
	Date     string    `json:"date"`
	LeaderID uuid.UUID `json:"leader_id"`
	HasEnded bool      `json:"has_ended"`
}

type itemJSON struct {
	ID         uuid.UUID  `json:"id"`
	TripID     uuid.UUID  `json:"trip_id"`
	Name       string     `json:"name"`
	Quantity   int        `json:"quantity"`
	PayerID    *uuid.UUID `json:"payer_id,omitempty"`
	AmountPaid string     `json:"amount_paid"`
	IsPaid     bool       `json:"is_paid"`
}

type memberJSON struct {
	UserID           uuid.UUID `json:"user_id"`
	PaymentConfirmed bool      `json:"payment_confirmed"`
	Paid             string    `json:"paid"`
	Owes             string    `json:"owes"`
	Collects         string    `json:"collects"`
}

func userToJSON(u *dbt.User) userJSON {
	return userJSON{ID: u.ID, Username: u.Username, Email: u.Email}
}

func tripToJSON(t *dbt.TripInfo) tripJSON {
	return tripJSON{
		ID:       t.ID,
		Title:    t.Title,
		Code:     t.Code,
		Date:     t.Date.Format(dateLayout),
		LeaderID: t.LeaderID,
		HasEnded: t.HasEnded,
	}
}

func itemToJSON(i *dbt.Item) itemJSON {
	return itemJSON{
		ID:         i.ID,
		TripID:     i.TripID,
		Name:       i.Name,
		Quantity:   i.Quantity,
		PayerID:    i.PayerID,
		AmountPaid: i.AmountPaid.String(),
		IsPaid:     i.IsPaid,
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authn.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": userToJSON(user), "token": token})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authn.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidCredentials.Error()})
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userToJSON(user), "token": token})
}

func (h *Handler) Home(c *gin.Context) {
	view, err := h.svc.Home(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	trips := make([]tripJSON, 0, len(view.Trips))
	for i := range view.Trips {
		trips = append(trips, tripToJSON(&view.Trips[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"trips":       trips,
		"has_created": view.HasCreated,
		"has_joined":  view.HasJoined,
	})
}

type createTripRequest struct {
	Title string `json:"title" binding:"required"`
	Date  string `json:"date" binding:"required"`
	Items []struct {
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
}

func (h *Handler) CreateTrip(c *gin.Context) {
	var req createTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be in YYYY-MM-DD format"})
		return
	}

	items := make([]trip.NewItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, trip.NewItem{Name: it.Name, Quantity: it.Quantity})
	}

	info, err := h.svc.CreateTrip(c.Request.Context(), currentUserID(c), req.Title, date, items)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tripToJSON(info))
}

func (h *Handler) TripDetail(c *gin.Context) {
	tripID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	detail, err := h.svc.TripDetail(c.Request.Context(), currentUserID(c), tripID)
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]itemJSON, 0, len(detail.Items))
	for i := range detail.Items {
		items = append(items, itemToJSON(&detail.Items[i]))
	}
	members := make([]memberJSON, 0, len(detail.Memberships))
	for _, m := range detail.Memberships {
		balance := detail.Split[m.UserID]
		members = append(members, memberJSON{
			UserID:           m.UserID,
			PaymentConfirmed: m.PaymentConfirmed,
			Paid:             balance.Paid.String(),
			Owes:             balance.Owes.String(),
			Collects:         balance.Collects.String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"trip":            tripToJSON(&detail.Info),
		"items":           items,
		"members":         members,
		"total_paid":      detail.TotalPaid.String(),
		"complete_ratio":  detail.CompleteRatio,
		"confirmed_ratio": detail.ConfirmedRatio,
		"caller": gin.H{
			"user_id":           detail.Caller.UserID,
			"payment_confirmed": detail.Caller.PaymentConfirmed,
			"is_leader":         detail.Caller.UserID == detail.Info.LeaderID,
		},
	})
}

func (h *Handler) TripPreview(c *gin.Context) {
	info, err := h.svc.TripPreview(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tripToJSON(info))
}

type joinTripRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *Handler) JoinTrip(c *gin.Context) {
	var req joinTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	info, err := h.svc.JoinTrip(c.Request.Context(), currentUserID(c), req.Code)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tripToJSON(info))
}

func (h *Handler) LeaveTrip(c *gin.Context) {
	tripID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.LeaveTrip(c.Request.Context(), currentUserID(c), tripID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

func (h *Handler) EndTrip(c *gin.Context) {
	tripID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	ended, err := h.svc.EndTrip(c.Request.Context(), currentUserID(c), tripID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ended": ended})
}

func (h *Handler) ConfirmPayment(c *gin.Context) {
	tripID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.ConfirmPayment(c.Request.Context(), currentUserID(c), tripID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "confirmed"})
}

func (h *Handler) DeleteTrip(c *gin.Context) {
	tripID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteTrip(c.Request.Context(), currentUserID(c), tripID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type addItemRequest struct {
	Name     string `json:"name" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
}

func (h *Handler) AddItem(c *gin.Context) {
	tripID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.svc.AddItem(c.Request.Context(), currentUserID(c), tripID, req.Name, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, itemToJSON(item))
}

func (h *Handler) DeleteItem(c *gin.Context) {
	itemID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	item, err := h.svc.DeleteItem(c.Request.Context(), itemID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, itemToJSON(item))
}

type payItemRequest struct {
	Amount string `json:"amount" binding:"required"`
}

func (h *Handler) PayItem(c *gin.Context) {
	itemID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req payItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.svc.PayItem(c.Request.Context(), currentUserID(c), itemID, req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, itemToJSON(item))
}

// BankDetails returns the bank profile of another user for settling up.
// The caller must share a trip with the target user.
func (h *Handler) BankDetails(c *gin.Context) {
	targetID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	callerID := currentUserID(c)

	if callerID != targetID {
		shared, err := h.sharesTrip(c, callerID, targetID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if !shared {
			c.JSON(http.StatusForbidden, gin.H{"error": "You are not a participant in this trip!"})
			return
		}
	}

	profile, err := h.users.GetProfile(c.Request.Context(), targetID)
	if err != nil {
		if errors.Is(err, dbt.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":   profile.UserID,
		"iban":      profile.IBAN,
		"bank_name": profile.BankName,
	})
}

func (h *Handler) sharesTrip(c *gin.Context, callerID, targetID uuid.UUID) (bool, error) {
	trips, err := h.trips.ListTripsByMember(c.Request.Context(), callerID)
	if err != nil {
		return false, err
	}
	for _, t := range trips {
		if _, err := h.trips.GetMembership(c.Request.Context(), t.ID, targetID); err == nil {
			return true, nil
		} else if !errors.Is(err, dbt.ErrNotFound) {
			return false, err
		}
	}
	return false, nil
}

func (h *Handler) GetProfile(c *gin.Context) {
	profile, err := h.users.EnsureProfile(c.Request.Context(), currentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":   profile.UserID,
		"iban":      profile.IBAN,
		"bank_name": profile.BankName,
	})
}

type profileRequest struct {
	IBAN     string `json:"iban"`
	BankName string `json:"bank_name"`
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile := &dbt.Profile{
		UserID:   currentUserID(c),
		IBAN:     req.IBAN,
		BankName: req.BankName,
	}
	if _, err := h.users.EnsureProfile(c.Request.Context(), profile.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if err := h.users.UpdateProfile(c.Request.Context(), profile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":   profile.UserID,
		"iban":      profile.IBAN,
		"bank_name": profile.BankName,
	})
}
