package httpapi

import (
	"net/http"
	"strings"

	"github.com/riskibarqy/touchline/internal/domain/record"
	"github.com/riskibarqy/touchline/internal/usecase"
)

// registerRecordCollection mounts list, create, get, replace and delete for
// one entity kind under /v1/{path}. Every write goes through the data service
// so quota, ownership and sync bookkeeping apply.
func registerRecordCollection[T any, PT interface {
	*T
	record.Entity
}](mux *http.ServeMux, handler *Handler, path string) {
	base := "/v1/" + path
	mux.HandleFunc("GET "+base, listRecords[T, PT](handler))
	mux.HandleFunc("POST "+base, createRecord[T, PT](handler))
	mux.HandleFunc("GET "+base+"/{id}", getRecord[T, PT](handler))
	mux.HandleFunc("PUT "+base+"/{id}", replaceRecord[T, PT](handler))
	mux.HandleFunc("DELETE "+base+"/{id}", deleteRecord[T, PT](handler))
}

func listRecords[T any, PT interface {
	*T
	record.Entity
}](h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.Handler.ListRecords")
		defer span.End()

		query := r.URL.Query()
		items, err := usecase.List[T, PT](ctx, h.data, usecase.ListFilter{
			ParentID: strings.TrimSpace(query.Get("parent_id")),
			OwnerID:  strings.TrimSpace(query.Get("owner_id")),
		})
		if err != nil {
			h.logger.ErrorContext(ctx, "list records failed", "kind", PT(new(T)).Kind(), "error", err)
			writeError(ctx, w, err)
			return
		}

		writeSuccess(ctx, w, http.StatusOK, items)
	}
}

func createRecord[T any, PT interface {
	*T
	record.Entity
}](h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateRecord")
		defer span.End()

		item := new(T)
		if err := decodeJSON(r, item); err != nil {
			writeError(ctx, w, err)
			return
		}

		created, err := usecase.Create[T, PT](ctx, h.data, item)
		if err != nil {
			h.logger.WarnContext(ctx, "create record failed", "kind", PT(item).Kind(), "error", err)
			writeError(ctx, w, err)
			return
		}

		writeSuccess(ctx, w, http.StatusCreated, created)
	}
}

func getRecord[T any, PT interface {
	*T
	record.Entity
}](h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.Handler.GetRecord")
		defer span.End()

		id, err := pathID(r)
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		item, err := usecase.Get[T, PT](ctx, h.data, id)
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		writeSuccess(ctx, w, http.StatusOK, item)
	}
}

// replaceRecord overwrites every payload field. Meta sent by the client is
// ignored.
func replaceRecord[T any, PT interface {
	*T
	record.Entity
}](h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.Handler.ReplaceRecord")
		defer span.End()

		id, err := pathID(r)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		next := new(T)
		if err := decodeJSON(r, next); err != nil {
			writeError(ctx, w, err)
			return
		}

		updated, err := usecase.Update[T, PT](ctx, h.data, id, func(cur *T) error {
			*cur = *next
			return nil
		})
		if err != nil {
			h.logger.WarnContext(ctx, "update record failed", "kind", PT(next).Kind(), "id", id, "error", err)
			writeError(ctx, w, err)
			return
		}

		writeSuccess(ctx, w, http.StatusOK, updated)
	}
}

func deleteRecord[T any, PT interface {
	*T
	record.Entity
}](h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteRecord")
		defer span.End()

		id, err := pathID(r)
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		if err := usecase.Delete[T, PT](ctx, h.data, id); err != nil {
			writeError(ctx, w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
