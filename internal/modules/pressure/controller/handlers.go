package controller

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/JorgeS15/AirLab/internal/modules/pressure/repository"
	"github.com/JorgeS15/AirLab/internal/modules/pressure/service"
	"github.com/JorgeS15/AirLab/internal/modules/pressure/types"
	"github.com/JorgeS15/AirLab/internal/utils"
)

type channelsResponse struct {
	Success bool `json:"success"`
	types.Snapshot
}

type offsetsResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Offsets types.Offsets `json:"offsets"`
}

type historyResponse struct {
	Success bool                     `json:"success"`
	Events  []types.CalibrationEvent `json:"events"`
}

func (c *pressureControllerImpl) handleChannels(w http.ResponseWriter, r *http.Request) {
	snap, err := c.poller.Poll()
	if err != nil {
		writeServiceError(w, "poll", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, channelsResponse{Success: true, Snapshot: snap})
}

func (c *pressureControllerImpl) handleOffsets(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, offsetsResponse{Success: true, Offsets: c.calibrator.Offsets()})
}

func (c *pressureControllerImpl) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseHistoryLimit(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	events, err := c.calibrator.History(limit)
	if err != nil {
		slog.Error("calibration history failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load calibration history")
		return
	}
	utils.WriteJSON(w, http.StatusOK, historyResponse{Success: true, Events: events})
}

func (c *pressureControllerImpl) handleCalibrateZero(w http.ResponseWriter, r *http.Request) {
	offsets, err := c.calibrator.CalibrateZero()
	if err != nil {
		writeServiceError(w, "calibrate", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, offsetsResponse{
		Success: true,
		Message: "All channels calibrated to 0 mbar",
		Offsets: offsets,
	})
}

func (c *pressureControllerImpl) handleResetCalibration(w http.ResponseWriter, r *http.Request) {
	offsets, err := c.calibrator.ResetCalibration()
	if err != nil {
		writeServiceError(w, "reset calibration", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, offsetsResponse{
		Success: true,
		Message: "Calibration reset to factory defaults",
		Offsets: offsets,
	})
}

func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNoData):
		slog.Warn(op+": no analog data", "error", err)
		utils.WriteError(w, http.StatusServiceUnavailable, "failed to read analog data")
	case errors.Is(err, repository.ErrPersistence):
		slog.Error(op+": offsets not saved", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to save calibration offsets")
	default:
		slog.Error(op+" failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
