package controller

import (
	"net/http"
	"time"

	"github.com/JorgeS15/AirLab/internal/modules/digital/types"
)

type Gateway interface {
	ReadInputs() (types.Vector, error)
	ReadOutputs() types.Vector
	SetOutput(index, value int) (types.Vector, error)
	SetAllOutputs(values []int) (types.Vector, error)
}

type DigitalController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type digitalControllerImpl struct {
	gateway Gateway
	now     func() time.Time
}

func NewDigitalController(gateway Gateway) DigitalController {
	return &digitalControllerImpl{gateway: gateway, now: time.Now}
}

func (c *digitalControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/digital/inputs", c.handleInputs)
	mux.HandleFunc("GET /api/v1/digital/outputs", c.handleOutputs)
	mux.HandleFunc("POST /api/v1/digital/outputs", c.handleSetOutput)
	mux.HandleFunc("POST /api/v1/digital/outputs/all", c.handleSetAllOutputs)
}
