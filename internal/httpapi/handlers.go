package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/apperr"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/broadcast"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

// createTaskRequest accepts the execution date as YYYY-MM-DD or RFC 3339.
type createTaskRequest struct {
	Body          string              `json:"body"`
	Type          string              `json:"type"`
	ExecutionDate string              `json:"execution_date"`
	Mode          model.RecipientMode `json:"mode"`
	SelectedIDs   []string            `json:"selected_ids"`
}

type updateStatusRequest struct {
	Status model.AssignmentStatus `json:"status"`
}

type deleteTaskResponse struct {
	TaskID             string `json:"task_id"`
	RecipientsAffected int    `json:"recipients_affected"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Validation(map[string]string{"body": "malformed JSON: " + err.Error()})
	}
	return nil
}

// parseDate accepts a calendar date or a full timestamp.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request, caller model.Caller) {
	var req createTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	execDate, ok := parseDate(req.ExecutionDate)
	if !ok {
		s.writeError(w, r, apperr.Validation(map[string]string{
			"execution_date": "must be YYYY-MM-DD or an RFC 3339 timestamp",
		}))
		return
	}

	res, err := s.svc.CreateTask(r.Context(), caller, broadcast.CreateTaskInput{
		Body:          req.Body,
		Type:          req.Type,
		ExecutionDate: execDate,
		Mode:          req.Mode,
		SelectedIDs:   req.SelectedIDs,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request, caller model.Caller) {
	id := r.PathValue("id")
	n, err := s.svc.DeleteTask(r.Context(), caller, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteTaskResponse{TaskID: id, RecipientsAffected: n})
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request, caller model.Caller) {
	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.svc.UpdateAssignmentStatus(r.Context(), caller, r.PathValue("id"), req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleListInbox(w http.ResponseWriter, r *http.Request, caller model.Caller) {
	values := r.URL.Query()
	fields := make(map[string]string)

	q := broadcast.InboxQuery{
		View:  model.InboxView(values.Get("view")),
		Query: strings.TrimSpace(values.Get("q")),
	}
	if v := values.Get("status"); v != "" {
		st := model.AssignmentStatus(v)
		q.Status = &st
	}
	if v := values.Get("deleted"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fields["deleted"] = "must be true or false"
		}
		q.Deleted = &b
	}
	q.SortBy, q.SortDesc = parseSort(values.Get("sort"))
	q.Limit, q.Offset = parsePaging(values, fields)

	if len(fields) > 0 {
		s.writeError(w, r, apperr.Validation(fields))
		return
	}

	page, err := s.svc.ListInbox(r.Context(), caller, q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// parseSort reads "field" as ascending and "-field" as descending.
func parseSort(v string) (string, bool) {
	if rest, ok := strings.CutPrefix(v, "-"); ok {
		return rest, true
	}
	return v, false
}

func parsePaging(values url.Values, fields map[string]string) (limit, offset int) {
	for _, key := range []string{"limit", "offset"} {
		raw := values.Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			fields[key] = "must be an integer"
			continue
		}
		if key == "limit" {
			limit = n
		} else {
			offset = n
		}
	}
	return limit, offset
}

func (s *Server) handleListRecipients(w http.ResponseWriter, r *http.Request, caller model.Caller) {
	values := r.URL.Query()
	fields := make(map[string]string)

	q := broadcast.RecipientQuery{
		Query:   strings.TrimSpace(values.Get("q")),
		CityIDs: values["city"],
	}
	for _, role := range values["role"] {
		q.Roles = append(q.Roles, model.Role(strings.ToUpper(role)))
	}
	q.Limit, q.Offset = parsePaging(values, fields)
	if len(fields) > 0 {
		s.writeError(w, r, apperr.Validation(fields))
		return
	}

	page, err := s.svc.ListAvailableRecipients(r.Context(), caller, q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request, caller model.Caller) {
	res, err := s.svc.TriggerArchivalSweep(r.Context(), caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request, caller model.Caller) {
	unreadOnly := false
	if v := r.URL.Query().Get("unread"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, apperr.Validation(map[string]string{"unread": "must be true or false"}))
			return
		}
		unreadOnly = b
	}
	ns, err := s.svc.ListNotifications(r.Context(), caller, unreadOnly)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ns == nil {
		ns = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, ns)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request, caller model.Caller) {
	if err := s.svc.MarkNotificationRead(r.Context(), caller, r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request, caller model.Caller) {
	entries, err := s.svc.ListAuditEntries(r.Context(), caller,
		r.PathValue("entityType"), r.PathValue("entityID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
