package fluid

import (
	"strconv"

	"github.com/CodeVermA/fluid-simulation/internal/core"
)

func (s *Solver) Parameters() core.ParameterSnapshot {
	params := s.cfg.Params
	groups := []core.ParameterGroup{
		{
			Name: "Grid",
			Params: []core.Parameter{
				core.IntParam("w", "Width", s.cfg.Width),
				core.IntParam("h", "Height", s.cfg.Height),
				core.IntParam("dye", "Dye planes", s.cfg.DensityComponents),
				core.Int64Param("seed", "Seed", s.cfg.Seed),
				core.FloatParam("grid_scale", "Grid scale", float64(params.Scale(s.cfg.Width, s.cfg.Height))),
				{Key: "backend", Label: "Backend", Value: s.backend.Name()},
				{Key: "walls", Label: "Walls", Value: s.cfg.Walls.String()},
				core.IntParam("frame", "Frame", s.frame),
			},
		},
		{
			Name: "Transport",
			Params: []core.Parameter{
				core.FloatParam("viscosity", "Viscosity", params.Viscosity),
				core.FloatParam("diffusion", "Diffusion", params.Diffusion),
				core.FloatParam("velocity_dissipation", "Velocity dissipation", params.VelocityDissipation),
				core.FloatParam("density_dissipation", "Density dissipation", params.DensityDissipation),
				core.IntParam("diffusion_iterations", "Diffusion iterations", params.DiffusionIterations),
			},
		},
		{
			Name: "Pressure",
			Params: []core.Parameter{
				core.IntParam("pressure_iterations", "Pressure iterations", params.PressureIterations),
			},
		},
		{
			Name: "Vorticity",
			Params: []core.Parameter{
				core.FloatParam("vorticity", "Vorticity", params.Vorticity),
				core.FloatParam("confinement_epsilon", "Confinement epsilon", params.ConfinementEpsilon),
			},
		},
		{
			Name: "Boundaries",
			Params: []core.Parameter{
				core.FloatParam("wall_friction", "Wall friction", params.WallFriction),
				core.IntParam("wall_thickness", "Wall thickness", params.WallThickness),
				core.IntParam("solid_cells", "Solid cells", s.st.obstacles.Count()),
			},
		},
		{
			Name: "Input",
			Params: []core.Parameter{
				core.FloatParam("splat_radius", "Splat radius", params.SplatRadius),
			},
		},
	}
	return core.ParameterSnapshot{Groups: groups}
}

// ParameterControls lists the tunables adjustable from the HUD.
func (s *Solver) ParameterControls() []core.ParameterControl {
	return []core.ParameterControl{
		floatControl("viscosity", "Viscosity", 0.00005, 0, 0.01),
		floatControl("diffusion", "Diffusion", 0.00005, 0, 0.01),
		floatControl("velocity_dissipation", "Vel dissipation", 0.001, 0.9, 1),
		floatControl("density_dissipation", "Dye dissipation", 0.001, 0.9, 1),
		intControl("pressure_iterations", "Pressure iters", 5, 1, 200),
		intControl("diffusion_iterations", "Diffusion iters", 5, 0, 100),
		floatControl("vorticity", "Vorticity", 1, 0, 100),
		floatControl("wall_friction", "Wall friction", 0.01, 0, 1),
		intControl("wall_thickness", "Wall thickness", 1, 1, 16),
		floatControl("splat_radius", "Splat radius", 0.5, 0.5, 32),
	}
}

// SetFloatParameter updates a floating point tunable. Values the config would
// reject are refused.
func (s *Solver) SetFloatParameter(key string, value float64) bool {
	if _, ok := floatParams[key]; !ok {
		return false
	}
	return s.applyParam(key, strconv.FormatFloat(value, 'g', -1, 64))
}

// SetIntParameter updates an integer tunable. Changing the wall thickness
// rebuilds the obstacle mask.
func (s *Solver) SetIntParameter(key string, value int) bool {
	if _, ok := intParams[key]; !ok {
		return false
	}
	return s.applyParam(key, strconv.Itoa(value))
}

func (s *Solver) applyParam(key, value string) bool {
	next := s.cfg.Params
	if !applyParam(&next, key, value) {
		return false
	}
	if next.Validate() != nil {
		return false
	}
	thicknessChanged := next.WallThickness != s.cfg.Params.WallThickness
	s.cfg.Params = next
	if thicknessChanged {
		s.st.obstacles.setWalls(s.cfg.Walls, next.WallThickness)
		s.st.zeroSolids()
	}
	return true
}

func floatControl(key, label string, step, min, max float64) core.ParameterControl {
	return core.ParameterControl{
		Key:    key,
		Label:  label,
		Type:   core.ParamTypeFloat,
		Step:   step,
		Min:    min,
		Max:    max,
		HasMin: true,
		HasMax: true,
	}
}

func intControl(key, label string, step, min, max int) core.ParameterControl {
	return core.ParameterControl{
		Key:    key,
		Label:  label,
		Type:   core.ParamTypeInt,
		Step:   float64(step),
		Min:    float64(min),
		Max:    float64(max),
		HasMin: true,
		HasMax: true,
	}
}
