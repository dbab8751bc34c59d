package inference

import (
	"fmt"

	"github.com/ds124wfegd/vton/config"
	"github.com/ds124wfegd/vton/internal/entity"
)

// Params are the provider-independent inputs of one try-on.
type Params struct {
	PersonImage        string
	GarmentImage       string
	GarmentDescription string
	Category           string
	DenoiseSteps       int
}

// Model binds a logical model name to a Replicate identifier and the field
// layout that model expects.
type Model struct {
	Name        string
	DisplayName string
	Identifier  string
	build       func(p Params) (map[string]any, error)
}

// Input builds a fresh request mapping for this model.
func (m Model) Input(p Params) (map[string]any, error) {
	return m.build(p)
}

type Registry struct {
	models map[string]Model
	names  []string
}

func NewRegistry(cfg config.ModelsConfig) *Registry {
	models := []Model{
		{Name: config.ModelIDMVTON, DisplayName: "IDM-VTON", build: idmVTONInput},
		{Name: config.ModelOOTD, DisplayName: "OOTDiffusion", build: ootdInput},
		{Name: config.ModelCatVTON, DisplayName: "CatVTON", build: catVTONInput},
	}

	r := &Registry{models: make(map[string]Model, len(models))}
	for _, m := range models {
		m.Identifier, _ = cfg.Identifier(m.Name)
		r.models[m.Name] = m
		r.names = append(r.names, m.Name)
	}
	return r
}

func (r *Registry) Lookup(name string) (Model, error) {
	m, ok := r.models[name]
	if !ok {
		return Model{}, fmt.Errorf("%w: %q", entity.ErrUnknownModel, name)
	}
	return m, nil
}

// Names lists the logical model names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

func idmVTONInput(p Params) (map[string]any, error) {
	return map[string]any{
		"human_img":       p.PersonImage,
		"garm_img":        p.GarmentImage,
		"garment_des":     p.GarmentDescription,
		"category":        p.Category,
		"is_checked":      true,
		"is_checked_crop": false,
		"denoise_steps":   p.DenoiseSteps,
	}, nil
}

var ootdCategories = map[string]int{
	entity.CategoryUpperBody: 0,
	entity.CategoryLowerBody: 1,
	entity.CategoryDresses:   2,
}

func ootdInput(p Params) (map[string]any, error) {
	category, ok := ootdCategories[p.Category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrUnsupportedCategory, p.Category)
	}
	return map[string]any{
		"model_image":   p.PersonImage,
		"garment_image": p.GarmentImage,
		"category":      category,
		"n_steps":       p.DenoiseSteps,
	}, nil
}

var catVTONClothTypes = map[string]string{
	entity.CategoryUpperBody: "upper",
	entity.CategoryLowerBody: "lower",
	entity.CategoryDresses:   "overall",
}

func catVTONInput(p Params) (map[string]any, error) {
	clothType, ok := catVTONClothTypes[p.Category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrUnsupportedCategory, p.Category)
	}
	return map[string]any{
		"image":               p.PersonImage,
		"cloth":               p.GarmentImage,
		"cloth_type":          clothType,
		"num_inference_steps": p.DenoiseSteps,
	}, nil
}
