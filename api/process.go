package api

import (
	"bytes"
	"net/http"
	"strconv"

	"photosearch/api/handler"
	"photosearch/database"
	"photosearch/imageio"
	"photosearch/imageprocessor"
	"photosearch/types"

	"github.com/gorilla/mux"
)

// RoutineInfo describes a registered routine
type RoutineInfo struct {
	Name   string `json:"name"`
	Layout string `json:"layout"`
}

func (a *API) routinesHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	names := a.Routines.Names()
	routines := make([]RoutineInfo, 0, len(names))

	for _, name := range names {
		routine, err := a.Routines.Get(name)
		if err != nil {
			continue
		}
		routines = append(routines, RoutineInfo{Name: name, Layout: routine.Layout().String()})
	}

	return handler.WriteJSON(w, http.StatusOK, routines)
}

func (a *API) processHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	name := mux.Vars(r)["routine"]

	proc, err := a.Routines.Processor(name)
	if err != nil {
		return a.errorFor(r, err)
	}

	format, err := imageio.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		return a.errorFor(r, err)
	}

	limit := a.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}

	img, _, err := imageio.Decode(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		return a.errorFor(r, err)
	}

	record := types.ProcessRecord{
		Source:  "upload",
		Routine: proc.Routine.Name(),
		Width:   img.Width(),
		Height:  img.Height(),
	}
	record.Hash, _ = imageprocessor.AverageHash(img)

	out, err := proc.Process(img)
	if err != nil {
		a.recordHistory(r, record, err)
		return a.errorFor(r, err)
	}

	var buf bytes.Buffer
	if err := imageio.Encode(&buf, out, format); err != nil {
		a.recordHistory(r, record, err)
		return a.errorFor(r, err)
	}
	a.recordHistory(r, record, nil)

	w.Header().Set("Content-Type", imageio.ContentType(format))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	if _, err := w.Write(buf.Bytes()); err != nil {
		a.logError(r, "error writing image", err)
	}

	return nil
}

func (a *API) recordHistory(r *http.Request, record types.ProcessRecord, err error) {
	if a.Database == nil {
		return
	}

	record.Success = err == nil
	if err != nil {
		record.Error = err.Error()
	}

	if _, err := database.RecordProcessed(a.Database, record); err != nil {
		a.logError(r, "cannot record history", err)
	}
}
