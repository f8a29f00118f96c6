package graph

import "fmt"

// CreateSLMTrainingTasks emits the fixed seven-task pipeline for model
// training: data-prep and arch-design feed training; the remainder form
// a linear chain. Grounded on TaskGraph.create_slm_training_tasks in the
// Python original.
func CreateSLMTrainingTasks(goal string) []*Task {
	return []*Task{
		{
			ID:           "slm-data-prep",
			Title:        "Prepare training data",
			Subsystem:    "slm",
			AssignedRole: "data_scientist",
			Priority:     1,
			Description:  fmt.Sprintf("Prepare and tokenize the training corpus for: %s", goal),
		},
		{
			ID:           "slm-arch-design",
			Title:        "Design model architecture",
			Subsystem:    "slm",
			AssignedRole: "model_architect",
			Priority:     1,
			Description:  fmt.Sprintf("Design a small language model architecture for: %s", goal),
		},
		{
			ID:           "slm-training",
			Title:        "Train model",
			Subsystem:    "slm",
			AssignedRole: "training",
			Priority:     2,
			Dependencies: []string{"slm-data-prep", "slm-arch-design"},
			Description:  "Run the training subprocess against the prepared data and architecture.",
		},
		{
			ID:           "slm-evaluation",
			Title:        "Evaluate model",
			Subsystem:    "slm",
			AssignedRole: "training",
			Priority:     3,
			Dependencies: []string{"slm-training"},
			Description:  "Evaluate the trained checkpoint against held-out data.",
		},
		{
			ID:           "slm-quantization",
			Title:        "Quantize model",
			Subsystem:    "slm",
			AssignedRole: "training",
			Priority:     4,
			Dependencies: []string{"slm-evaluation"},
			Description:  "Quantize the evaluated checkpoint for deployment.",
		},
		{
			ID:           "slm-export",
			Title:        "Export model",
			Subsystem:    "slm",
			AssignedRole: "training",
			Priority:     5,
			Dependencies: []string{"slm-quantization"},
			Description:  "Export the quantized model to its distribution format.",
		},
		{
			ID:           "slm-integration",
			Title:        "Integrate model",
			Subsystem:    "slm",
			AssignedRole: "integrator",
			Priority:     6,
			Dependencies: []string{"slm-export"},
			Description:  "Integrate the exported model artifact into the workspace.",
		},
	}
}

// CreateKernelBuildTasks emits a fallback plan for kernel-build mode:
// one design task per subsystem, one implementation task per subsystem
// depending on its design task, and a final integration task depending
// on every implementation task. Used when the Manager agent's
// LLM-authored plan fails to parse (SPEC_FULL §4.12).
func CreateKernelBuildTasks(goal string, subsystems []string) []*Task {
	tasks := make([]*Task, 0, len(subsystems)*2+1)
	implIDs := make([]string, 0, len(subsystems))

	for _, sub := range subsystems {
		designID := fmt.Sprintf("design-%s", sub)
		implID := fmt.Sprintf("impl-%s", sub)
		implIDs = append(implIDs, implID)

		tasks = append(tasks, &Task{
			ID:           designID,
			Title:        fmt.Sprintf("Design %s", sub),
			Subsystem:    sub,
			AssignedRole: "architect",
			Priority:     1,
			Description:  fmt.Sprintf("Design the %s subsystem interface for: %s", sub, goal),
		})
		tasks = append(tasks, &Task{
			ID:           implID,
			Title:        fmt.Sprintf("Implement %s", sub),
			Subsystem:    sub,
			AssignedRole: "developer",
			Priority:     2,
			Dependencies: []string{designID},
			Description:  fmt.Sprintf("Implement the %s subsystem for: %s", sub, goal),
		})
	}

	tasks = append(tasks, &Task{
		ID:           "kernel-integration",
		Title:        "Integrate kernel subsystems",
		AssignedRole: "integrator",
		Priority:     3,
		Dependencies: implIDs,
		Description:  fmt.Sprintf("Run full-integration validation for: %s", goal),
	})

	return tasks
}
