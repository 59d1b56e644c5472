package controller

import (
	"net/http"

	"github.com/JorgeS15/AirLab/internal/modules/pressure/types"
)

type Poller interface {
	Poll() (types.Snapshot, error)
}

type Calibrator interface {
	CalibrateZero() (types.Offsets, error)
	ResetCalibration() (types.Offsets, error)
	Offsets() types.Offsets
	History(limit int) ([]types.CalibrationEvent, error)
}

type PressureController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type pressureControllerImpl struct {
	poller     Poller
	calibrator Calibrator
}

func NewPressureController(poller Poller, calibrator Calibrator) PressureController {
	return &pressureControllerImpl{poller: poller, calibrator: calibrator}
}

func (c *pressureControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/channels", c.handleChannels)
	mux.HandleFunc("GET /api/v1/calibration", c.handleOffsets)
	mux.HandleFunc("GET /api/v1/calibration/history", c.handleHistory)
	mux.HandleFunc("POST /api/v1/calibration/zero", c.handleCalibrateZero)
	mux.HandleFunc("POST /api/v1/calibration/reset", c.handleResetCalibration)
}
