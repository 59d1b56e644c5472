package digital

import (
	"net/http"

	"github.com/JorgeS15/AirLab/internal/config"
	"github.com/JorgeS15/AirLab/internal/modules/digital/controller"
	"github.com/JorgeS15/AirLab/internal/modules/digital/service"
)

func NewGateway(cfg config.Config) *service.Gateway {
	return service.NewGateway(cfg.DigitalInputPath, cfg.DigitalOutputPath)
}

func RegisterFeature(mux *http.ServeMux, gateway *service.Gateway) {
	digitalController := controller.NewDigitalController(gateway)
	digitalController.RegisterRoutes(mux)
}
