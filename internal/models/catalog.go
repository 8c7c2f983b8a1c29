package models

import (
	"fmt"
	"time"
)

// SimulationDifficulty is the difficulty scale of a whole simulation
type SimulationDifficulty string

const (
	SimulationBeginner     SimulationDifficulty = "beginner"
	SimulationIntermediate SimulationDifficulty = "intermediate"
	SimulationAdvanced     SimulationDifficulty = "advanced"
	SimulationExpert       SimulationDifficulty = "expert"
	SimulationAdaptive     SimulationDifficulty = "adaptive"
)

// Valid reports whether d is a known simulation difficulty
func (d SimulationDifficulty) Valid() bool {
	switch d {
	case SimulationBeginner, SimulationIntermediate, SimulationAdvanced, SimulationExpert, SimulationAdaptive:
		return true
	}
	return false
}

// TaskDifficulty is the difficulty scale of a single task. It has no adaptive level.
type TaskDifficulty string

const (
	TaskBeginner     TaskDifficulty = "beginner"
	TaskIntermediate TaskDifficulty = "intermediate"
	TaskAdvanced     TaskDifficulty = "advanced"
	TaskExpert       TaskDifficulty = "expert"
)

// Valid reports whether d is a known task difficulty
func (d TaskDifficulty) Valid() bool {
	switch d {
	case TaskBeginner, TaskIntermediate, TaskAdvanced, TaskExpert:
		return true
	}
	return false
}

// TaskType is the kind of work a task asks for
type TaskType string

const (
	TaskTypeCode     TaskType = "code"
	TaskTypeDesign   TaskType = "design"
	TaskTypeDecision TaskType = "decision"
	TaskTypeData     TaskType = "data"
	TaskTypeAI       TaskType = "ai"
)

// Valid reports whether t is a known task type
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeCode, TaskTypeDesign, TaskTypeDecision, TaskTypeData, TaskTypeAI:
		return true
	}
	return false
}

// Role represents a job-function category (e.g., Developer, Designer)
type Role struct {
	ID          string    `json:"id" yaml:"-" validate:"required"`
	Title       string    `json:"title" yaml:"title" validate:"required,min=2,max=100"`
	Description string    `json:"description" yaml:"description" validate:"max=500"`
	Icon        string    `json:"icon,omitempty" yaml:"icon" validate:"max=100"`
	Color       string    `json:"color,omitempty" yaml:"color" validate:"max=50"`
	CreatedAt   time.Time `json:"created" yaml:"-"`
	UpdatedAt   time.Time `json:"updated" yaml:"-"`
}

// Simulation is a trainable scenario owned by one role
type Simulation struct {
	ID          string               `json:"id" yaml:"-" validate:"required"`
	Title       string               `json:"title" yaml:"title" validate:"required,min=2,max=100"`
	Description string               `json:"description" yaml:"description" validate:"max=1000"`
	RoleID      string               `json:"role" yaml:"-" validate:"required"`
	Difficulty  SimulationDifficulty `json:"difficulty" yaml:"difficulty" validate:"required,oneof=beginner intermediate advanced expert adaptive"`
	Duration    int                  `json:"duration" yaml:"duration" validate:"min=1,max=180"` // minutes
	Image       string               `json:"image,omitempty" yaml:"image"`
	IsActive    bool                 `json:"isActive" yaml:"active"`
	CreatedAt   time.Time            `json:"created" yaml:"-"`
	UpdatedAt   time.Time            `json:"updated" yaml:"-"`

	// Role is the expanded owning role, set on single reads only
	Role *Role `json:"roleDetails,omitempty" yaml:"-" validate:"-"`
}

// DurationLimit returns the simulation duration as a time.Duration
func (s *Simulation) DurationLimit() time.Duration {
	return time.Duration(s.Duration) * time.Minute
}

// Task is a unit of work within a simulation
type Task struct {
	ID            string         `json:"id" yaml:"-" validate:"required"`
	Title         string         `json:"title" yaml:"title" validate:"required,min=2,max=100"`
	Description   string         `json:"description" yaml:"description" validate:"max=2000"`
	SimulationID  string         `json:"simulation" yaml:"-" validate:"required"`
	Type          TaskType       `json:"type" yaml:"type" validate:"required,oneof=code design decision data ai"`
	Difficulty    TaskDifficulty `json:"difficulty" yaml:"difficulty" validate:"required,oneof=beginner intermediate advanced expert"`
	TimeLimit     int            `json:"timeLimit" yaml:"time_limit" validate:"min=0,max=3600"` // seconds, 0 = no limit
	ResourceDoc   Document       `json:"resources,omitempty" yaml:"-"`
	EvaluationDoc Document       `json:"evaluation,omitempty" yaml:"-"`
	Order         *int           `json:"order,omitempty" yaml:"order" validate:"omitempty,min=0"`
	CreatedAt     time.Time      `json:"created" yaml:"-"`
	UpdatedAt     time.Time      `json:"updated" yaml:"-"`
}

// Limited reports whether the task has a time limit
func (t *Task) Limited() bool {
	return t.TimeLimit > 0
}

// Criterion is one weighted evaluation criterion
type Criterion struct {
	Name        string  `json:"name" yaml:"name" validate:"required"`
	Weight      float64 `json:"weight" yaml:"weight" validate:"gt=0"`
	Description string  `json:"description,omitempty" yaml:"description"`
}

// TaskFile is a starter file shipped with a task
type TaskFile struct {
	Name    string `json:"name" yaml:"name"`
	Content string `json:"content" yaml:"content"`
}

// TaskResources are the files and hints attached to a task
type TaskResources struct {
	Files []TaskFile `json:"files,omitempty" yaml:"files"`
	Hints []string   `json:"hints,omitempty" yaml:"hints"`
}

// Criteria decodes the evaluation blob. Both a bare list and an object with
// a "criteria" key are accepted. An empty blob yields no criteria.
func (t *Task) Criteria() ([]Criterion, error) {
	if t.EvaluationDoc.IsEmpty() {
		return nil, nil
	}

	var list []Criterion
	if err := t.EvaluationDoc.Decode(&list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Criteria []Criterion `json:"criteria"`
	}
	if err := t.EvaluationDoc.Decode(&wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode evaluation criteria of task %s: %w", t.ID, err)
	}
	return wrapped.Criteria, nil
}

// Resources decodes the resources blob
func (t *Task) Resources() (TaskResources, error) {
	var res TaskResources
	if t.ResourceDoc.IsEmpty() {
		return res, nil
	}
	if err := t.ResourceDoc.Decode(&res); err != nil {
		return res, fmt.Errorf("failed to decode resources of task %s: %w", t.ID, err)
	}
	return res, nil
}

// SimulationFilter filters simulation listings
type SimulationFilter struct {
	RoleID     string
	ActiveOnly bool
}
