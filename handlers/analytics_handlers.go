// api/handlers/analytics_handlers.go
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/GasperHribersek/SOA-project-fintech/middleware"
	"github.com/GasperHribersek/SOA-project-fintech/models"
	"github.com/GasperHribersek/SOA-project-fintech/store"

	"github.com/gin-gonic/gin"
)

// EventStore is the persistence surface the analytics handlers depend on.
// Satisfied by *store.EventStore.
type EventStore interface {
	Create(ctx context.Context, event *models.AnalyticsEvent) error
	CreateBatch(ctx context.Context, events []*models.AnalyticsEvent) error
	List(ctx context.Context, filter store.EventFilter, limit, offset int) ([]models.AnalyticsEvent, int, error)
	Aggregate(ctx context.Context, filter store.EventFilter) (int, map[string]int, error)
	UpdateByID(ctx context.Context, id int64, update models.EventUpdate) (*models.AnalyticsEvent, error)
	UpdateBatch(ctx context.Context, updates []models.EventUpdate) ([]models.AnalyticsEvent, error)
	DeleteByID(ctx context.Context, id int64) error
	DeleteByFilter(ctx context.Context, filter store.EventFilter) (int, error)
}

type AnalyticsHandlers struct {
	EventStore EventStore
}

func NewAnalyticsHandlers(s EventStore) *AnalyticsHandlers {
	return &AnalyticsHandlers{
		EventStore: s,
	}
}

// timestampLayouts are the accepted formats for start_date/end_date params.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// eventFilterFromQuery builds the shared filter set from query parameters.
// Writes a 400 response and returns ok=false when a parameter is malformed.
func eventFilterFromQuery(c *gin.Context) (store.EventFilter, bool) {
	var filter store.EventFilter

	if raw := c.Query("user_id"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'user_id' parameter. Must be an integer."})
			return filter, false
		}
		filter.UserID = &userID
	}

	filter.EventType = c.Query("event_type")

	if raw := c.Query("start_date"); raw != "" {
		start, err := parseTimestamp(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'start_date' timestamp format. Use ISO-8601 (e.g., 2006-01-02T15:04:05Z)"})
			return filter, false
		}
		filter.Start = &start
	}

	if raw := c.Query("end_date"); raw != "" {
		end, err := parseTimestamp(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'end_date' timestamp format. Use ISO-8601 (e.g., 2006-01-02T15:04:05Z)"})
			return filter, false
		}
		filter.End = &end
	}

	return filter, true
}

// newEventFromInput applies the server-controlled fields: remote address,
// user agent, and the user_id backfill from the verified identity when the
// payload leaves it empty.
func newEventFromInput(c *gin.Context, input models.EventInput) *models.AnalyticsEvent {
	event := &models.AnalyticsEvent{
		EventType: input.EventType,
		UserID:    input.UserID,
		SessionID: input.SessionID,
		PagePath:  input.PagePath,
		Metadata:  input.Metadata,
	}

	if ip := c.ClientIP(); ip != "" {
		event.IPAddress = &ip
	}
	if ua := c.Request.UserAgent(); ua != "" {
		event.UserAgent = &ua
	}

	if event.UserID == nil {
		if identity, ok := middleware.IdentityFrom(c); ok {
			if subject, err := strconv.ParseInt(identity.Subject, 10, 64); err == nil {
				event.UserID = &subject
			}
		}
	}

	return event
}

// TrackEvent handles POST /api/analytics/event.
func (h *AnalyticsHandlers) TrackEvent(c *gin.Context) {
	var input models.EventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if input.EventType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event_type is required"})
		return
	}

	event := newEventFromInput(c, input)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if err := h.EventStore.Create(ctx, event); err != nil {
		log.Printf("Error inserting analytics event: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record analytics event"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"event_id":  event.ID,
		"timestamp": event.Timestamp.UTC().Format(time.RFC3339Nano),
	})
}

// TrackEventsBatch handles POST /api/analytics/events. Entries without an
// event_type are dropped; the rest are stored as one transaction.
func (h *AnalyticsHandlers) TrackEventsBatch(c *gin.Context) {
	var req models.BatchEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Events == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "events array is required"})
		return
	}

	var events []*models.AnalyticsEvent
	for _, input := range req.Events {
		if input.EventType == "" {
			continue
		}
		events = append(events, newEventFromInput(c, input))
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if err := h.EventStore.CreateBatch(ctx, events); err != nil {
		log.Printf("Error inserting analytics events batch: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record analytics events"})
		return
	}

	eventIDs := []int64{}
	for _, event := range events {
		eventIDs = append(eventIDs, event.ID)
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"count":     len(events),
		"event_ids": eventIDs,
	})
}

// GetEvents handles GET /api/analytics/events.
func (h *AnalyticsHandlers) GetEvents(c *gin.Context) {
	filter, ok := eventFilterFromQuery(c)
	if !ok {
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'limit' parameter. Must be a non-negative integer."})
			return
		}
		limit = parsed
	}

	offset := 0
	if raw := c.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'offset' parameter. Must be a non-negative integer."})
			return
		}
		offset = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	events, total, err := h.EventStore.List(ctx, filter, limit, offset)
	if err != nil {
		log.Printf("Error listing analytics events: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve analytics events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetStats handles GET /api/analytics/stats. The per-type distribution is
// computed over the same filtered set as the total.
func (h *AnalyticsHandlers) GetStats(c *gin.Context) {
	filter, ok := eventFilterFromQuery(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	total, distribution, err := h.EventStore.Aggregate(ctx, filter)
	if err != nil {
		log.Printf("Error aggregating analytics events: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve analytics statistics"})
		return
	}

	nilIfEmpty := func(s string) interface{} {
		if s == "" {
			return nil
		}
		return s
	}

	c.JSON(http.StatusOK, gin.H{
		"total_events":            total,
		"event_type_distribution": distribution,
		"filters": gin.H{
			"user_id":    filter.UserID,
			"event_type": nilIfEmpty(c.Query("event_type")),
			"start_date": nilIfEmpty(c.Query("start_date")),
			"end_date":   nilIfEmpty(c.Query("end_date")),
		},
	})
}

// UpdateEvent handles PUT /api/analytics/event/:id. Only fields present in
// the payload are applied; the timestamp is never updatable.
func (h *AnalyticsHandlers) UpdateEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
		return
	}

	var update models.EventUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if update.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No data provided"})
		return
	}
	if update.EventType != nil && *update.EventType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event_type cannot be empty"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	event, err := h.EventStore.UpdateByID(ctx, id, update)
	if err != nil {
		if errors.Is(err, store.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return
		}
		log.Printf("Error updating analytics event %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update analytics event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"event":   event,
	})
}

// UpdateEventsBatch handles PUT /api/analytics/events. Entries missing an id,
// clearing event_type, or referencing an unknown id are skipped; the response
// reports only what succeeded.
func (h *AnalyticsHandlers) UpdateEventsBatch(c *gin.Context) {
	var req models.BatchUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Updates == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "updates array is required"})
		return
	}

	updates := make([]models.EventUpdate, 0, len(req.Updates))
	for _, update := range req.Updates {
		if update.EventType != nil && *update.EventType == "" {
			continue
		}
		updates = append(updates, update)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	updated, err := h.EventStore.UpdateBatch(ctx, updates)
	if err != nil {
		log.Printf("Error updating analytics events batch: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update analytics events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(updated),
		"events":  updated,
	})
}

// DeleteEvent handles DELETE /api/analytics/event/:id.
func (h *AnalyticsHandlers) DeleteEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if err := h.EventStore.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return
		}
		log.Printf("Error deleting analytics event %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete analytics event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Event %d deleted successfully", id),
	})
}

// DeleteEvents handles DELETE /api/analytics/events. Removes every event
// matching the filter set and reports the count.
func (h *AnalyticsHandlers) DeleteEvents(c *gin.Context) {
	filter, ok := eventFilterFromQuery(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	count, err := h.EventStore.DeleteByFilter(ctx, filter)
	if err != nil {
		log.Printf("Error deleting analytics events by filter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete analytics events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       fmt.Sprintf("%d event(s) deleted successfully", count),
		"deleted_count": count,
	})
}
