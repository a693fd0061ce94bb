// Package codespec holds the structured scene code specification produced by
// the generation oracle, and the two-variant result of decoding it.
package codespec

// CodeSpec is one attempt's worth of generated scene code.
type CodeSpec struct {
	Imports []string   `json:"imports"`
	Scenes  []CodeUnit `json:"scenes" validate:"required,min=1,dive"`
}

// CodeUnit describes a single scene. SceneID is stable across attempts so a
// retried unit can be matched to its previous failure. Objects and Animations
// must be present in the JSON but may be empty.
type CodeUnit struct {
	SceneID    string        `json:"scene_id"`
	ClassName  string        `json:"class_name"`
	SetupCode  []string      `json:"setup_code,omitempty"`
	Objects    []SceneObject `json:"objects" validate:"required,dive"`
	Animations []Animation   `json:"animations" validate:"required,dive"`
}

// SceneObject is one object declaration inside a scene.
type SceneObject struct {
	ObjectID    string `json:"object_id"`
	VarName     string `json:"var_name" validate:"required"`
	Constructor string `json:"constructor" validate:"required"`
	AddToScene  bool   `json:"add_to_scene"`
}

// Animation is one self.play call. RunTime is emitted only when set.
type Animation struct {
	AnimationID string   `json:"animation_id"`
	Call        string   `json:"call" validate:"required"`
	RunTime     *float64 `json:"run_time,omitempty" validate:"omitempty,gt=0"`
}

// SceneIDs returns the unit identifiers in spec order.
func (s CodeSpec) SceneIDs() []string {
	ids := make([]string, 0, len(s.Scenes))
	for _, sc := range s.Scenes {
		ids = append(ids, sc.SceneID)
	}
	return ids
}

// Unit looks up a scene by id.
func (s CodeSpec) Unit(id string) (CodeUnit, bool) {
	for _, sc := range s.Scenes {
		if sc.SceneID == id {
			return sc, true
		}
	}
	return CodeUnit{}, false
}
