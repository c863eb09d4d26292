package restapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/getmockd/mockman/pkg/config"
	"github.com/getmockd/mockman/pkg/httputil"
	"github.com/getmockd/mockman/pkg/instance"
	"github.com/getmockd/mockman/pkg/jsonmc"
	"github.com/getmockd/mockman/pkg/mockinstance"
)

// maxRequestBodySize bounds every request body this adapter reads.
const maxRequestBodySize = 10 * 1024 * 1024

func (s *Server) handleCreateServer(w http.ResponseWriter, r *http.Request) {
	var doc config.ServerDocument
	if err := decodeBody(w, r, &doc); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	spec, err := doc.ToSpec()
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidExpectation, err.Error())
		return
	}

	inst, err := s.mgr.Create(spec)
	if err != nil {
		status, code := mapInstanceError(err)
		writeError(w, status, code, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, asServerInfo(inst))
}

func (s *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	instances := s.mgr.List()
	infos := make([]ServerInfo, 0, len(instances))
	for _, inst := range instances {
		infos = append(infos, asServerInfo(inst))
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleGetServer(w http.ResponseWriter, r *http.Request) {
	inst, err := s.mgr.Get(r.PathValue("id"))
	if err != nil {
		status, code := mapInstanceError(err)
		writeError(w, status, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, asServerInfo(inst))
}

func (s *Server) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.Delete(r.PathValue("id")); err != nil {
		status, code := mapInstanceError(err)
		writeError(w, status, code, err.Error())
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) handleExistsServer(w http.ResponseWriter, r *http.Request) {
	_, err := s.mgr.Get(r.PathValue("id"))
	writeJSON(w, http.StatusOK, ExistsResponse{Exists: err == nil})
}

func (s *Server) handleSetExpectations(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	inst, err := s.mgr.Get(id)
	if err != nil {
		status, code := mapInstanceError(err)
		writeError(w, status, code, err.Error())
		return
	}

	var docs []config.ExpectationDoc
	if err := decodeBody(w, r, &docs); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidExpectation, err.Error())
		return
	}

	expectations := make([]mockinstance.Expectation, 0, len(docs))
	for _, d := range docs {
		exp, err := d.ToExpectation()
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidExpectation, err.Error())
			return
		}
		expectations = append(expectations, exp)
	}

	inst.SetExpectations(expectations)
	writeJSON(w, http.StatusOK, map[string]int{"count": len(expectations)})
}

func (s *Server) handleGetExpectations(w http.ResponseWriter, r *http.Request) {
	inst, err := s.mgr.Get(r.PathValue("id"))
	if err != nil {
		status, code := mapInstanceError(err)
		writeError(w, status, code, err.Error())
		return
	}

	expectations := inst.Expectations()
	docs := make([]config.ExpectationDoc, 0, len(expectations))
	for _, e := range expectations {
		docs = append(docs, config.FromExpectation(e))
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleClearExpectations(w http.ResponseWriter, r *http.Request) {
	inst, err := s.mgr.Get(r.PathValue("id"))
	if err != nil {
		status, code := mapInstanceError(err)
		writeError(w, status, code, err.Error())
		return
	}
	inst.ClearExpectations()
	httputil.WriteNoContent(w)
}

func asServerInfo(inst *instance.Instance) ServerInfo {
	return ServerInfo{
		ServerID:    inst.ID,
		Port:        inst.Port,
		Description: inst.Description,
		TLSEnabled:  inst.TLSEnabled,
		State:       string(inst.State),
		CreatedAt:   inst.CreatedAt,
	}
}

// decodeBody enforces maxRequestBodySize and, for the application/jsonmc
// content type, runs the body through the JsonMC parser before decoding it
// into v. Any other content type decodes as plain JSON.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	if strings.Contains(r.Header.Get("Content-Type"), "application/jsonmc") {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return err
		}
		data, err := jsonmc.Prepare(string(raw))
		if err != nil {
			return err
		}
		return json.Unmarshal(data, v)
	}

	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	httputil.WriteJSON(w, status, v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	httputil.WriteJSON(w, status, ErrorResponse{
		ErrorCode: code,
		Message:   message,
		Timestamp: time.Now(),
	})
}
