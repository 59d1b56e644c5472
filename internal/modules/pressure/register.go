package pressure

import (
	"database/sql"
	"net/http"

	"github.com/JorgeS15/AirLab/internal/config"
	"github.com/JorgeS15/AirLab/internal/modules/pressure/controller"
	"github.com/JorgeS15/AirLab/internal/modules/pressure/repository"
	"github.com/JorgeS15/AirLab/internal/modules/pressure/service"
)

// Feature is the acquisition pipeline with its calibration controller.
// Sampler is set when a sample interval is configured; HTTP readers are then
// served its latest result instead of polling themselves.
type Feature struct {
	Acquisition *service.Acquisition
	Calibrator  *service.Calibrator
	Sampler     *service.Sampled
}

// NewFeature builds the pipeline from cfg. db may be nil, which disables the
// calibration history.
func NewFeature(cfg config.Config, db *sql.DB) *Feature {
	offsets := repository.NewFileOffsetStore(cfg.OffsetsPath, cfg.Channels)

	var history repository.HistoryRepository
	if db != nil {
		history = repository.NewHistoryRepository(db)
	}

	acq := service.NewAcquisition(cfg.AnalogPath, cfg.Channels, offsets, service.NewFilterRegistry(cfg.FilterWindow))
	f := &Feature{
		Acquisition: acq,
		Calibrator:  service.NewCalibrator(acq, offsets, history),
	}
	if cfg.SampleInterval > 0 {
		f.Sampler = service.NewSampled(acq)
	}
	return f
}

func RegisterFeature(mux *http.ServeMux, f *Feature) {
	var poller controller.Poller = f.Acquisition
	if f.Sampler != nil {
		poller = service.PollerFunc(f.Sampler.Latest)
	}
	pressureController := controller.NewPressureController(poller, f.Calibrator)
	pressureController.RegisterRoutes(mux)
}
