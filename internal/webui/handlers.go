package webui

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kimata/unit-cooler/internal/model"
	"github.com/kimata/unit-cooler/internal/watering"
)

// statResponse is the /api/stat payload: everything the dashboard needs in
// one round trip.
type statResponse struct {
	Watering      []watering.Entry      `json:"watering"`
	Sensor        model.SenseSnapshot   `json:"sensor"`
	Mode          model.ModeIndex       `json:"mode"`
	CoolerStatus  model.CoolerStatus    `json:"cooler_status"`
	OutdoorStatus model.OutdoorStatus   `json:"outdoor_status"`
	Actuator      *model.ActuatorStatus `json:"actuator_status,omitempty"`
}

// writeJSON encodes data as the response body, wrapping it in a
// `callback(...)` JSONP shim when the request carries ?callback=, matching
// this dashboard's original cross-origin compatibility surface.
func writeJSON(w http.ResponseWriter, r *http.Request, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if cb := r.URL.Query().Get("callback"); cb != "" {
		w.Header().Set("Content-Type", "application/javascript")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "%s(%s);", cb, body)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (s *Server) handleStat(w http.ResponseWriter, r *http.Request) {
	msg, _ := s.cache.ControlMessage()

	resp := statResponse{
		Sensor:        msg.SenseData,
		Mode:          msg.ModeIndex,
		CoolerStatus:  msg.CoolerStatus,
		OutdoorStatus: msg.OutdoorStatus,
	}

	if status, ok := s.cache.ActuatorStatus(); ok {
		resp.Actuator = &status
	}

	if s.watering != nil {
		if totals, err := s.watering.DailyTotals(r.Context(), 10); err == nil {
			resp.Watering = watering.Summarize(totals, s.unitPrice)
		}
	}

	writeJSON(w, r, resp)
}

type wateringResponse struct {
	Watering []watering.Entry `json:"watering"`
}

func (s *Server) handleWatering(w http.ResponseWriter, r *http.Request) {
	if s.watering == nil {
		writeJSON(w, r, wateringResponse{Watering: []watering.Entry{}})
		return
	}

	totals, err := s.watering.DailyTotals(r.Context(), 10)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, r, wateringResponse{Watering: watering.Summarize(totals, s.unitPrice)})
}

type valveStatusResponse struct {
	State      string  `json:"state"`
	StateValue int     `json:"state_value"`
	Duration   float64 `json:"duration"`
}

func (s *Server) handleValveStatus(w http.ResponseWriter, r *http.Request) {
	if s.valveCtrl != nil {
		status, err := s.valveCtrl.GetStatus()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, r, valveStatusResponse{
			State: status.State.String(), StateValue: int(status.State), Duration: status.DurationSec,
		})
		return
	}

	// No local valve controller: fall back to the cached status published
	// by the actuator over its secondary socket.
	status, ok := s.cache.ActuatorStatus()
	if !ok {
		writeJSON(w, r, valveStatusResponse{State: model.ValveClose.String()})
		return
	}
	writeJSON(w, r, valveStatusResponse{
		State: status.Valve.State.String(), StateValue: int(status.Valve.State), Duration: status.Valve.DurationSec,
	})
}

type flowResponse struct {
	Flow *float64 `json:"flow"`
}

func (s *Server) handleGetFlow(w http.ResponseWriter, r *http.Request) {
	flow, err := s.flow.LastFlow()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if flow == nil {
		if status, ok := s.cache.ActuatorStatus(); ok {
			flow = status.FlowLPM
		}
	}
	if flow == nil && s.remoteLogBase != "" {
		s.proxyRemote(w, r, "/api/get_flow")
		return
	}
	writeJSON(w, r, flowResponse{Flow: flow})
}

func (s *Server) handleLogView(w http.ResponseWriter, r *http.Request) {
	if s.work == nil {
		if s.remoteLogBase != "" {
			s.proxyRemote(w, r, "/api/log_view")
			return
		}
		writeJSON(w, r, []any{})
		return
	}
	writeJSON(w, r, s.work.Snapshot())
}

// proxyRemote forwards the request to the actuator's own log server and
// copies its response back verbatim.
func (s *Server) proxyRemote(w http.ResponseWriter, r *http.Request, path string) {
	resp, err := s.remoteClient.Get(s.remoteLogBase + path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

// handleEvent is an SSE-able event-type notification: it reports the
// newest log entry's type, if any, so a dashboard can decide whether to
// go refetch /api/log_view rather than carrying the content itself.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	type eventResponse struct {
		EventType string `json:"event_type"`
	}
	if s.work == nil {
		writeJSON(w, r, eventResponse{})
		return
	}
	entries := s.work.Snapshot()
	if len(entries) == 0 {
		writeJSON(w, r, eventResponse{})
		return
	}
	writeJSON(w, r, eventResponse{EventType: entries[len(entries)-1].Level})
}

func (s *Server) handleLogClear(w http.ResponseWriter, r *http.Request) {
	if s.work != nil {
		s.work.Clear()
		w.WriteHeader(http.StatusOK)
		return
	}
	if s.remoteLogBase != "" {
		resp, err := s.remoteClient.Post(s.remoteLogBase+"/api/log_clear", "application/json", nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()
		w.WriteHeader(resp.StatusCode)
		return
	}
	w.WriteHeader(http.StatusOK)
}
