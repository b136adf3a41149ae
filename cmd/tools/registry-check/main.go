// Command registry-check inspects the task registry and validates job
// variables against a task's input schema.
package main

import (
	"flag"
	"fmt"
	"os"

	"discovery-workers/pkg/registry"
)

func main() {
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	varsCmd := flag.NewFlagSet("vars", flag.ExitOnError)

	listPath := listCmd.String("path", "", "Registry file (default: the embedded registry)")
	validatePath := validateCmd.String("path", "", "Registry file (default: the embedded registry)")
	varsPath := varsCmd.String("path", "", "Registry file (default: the embedded registry)")
	taskType := varsCmd.String("task", "", "Task type whose input schema is used")
	varsFile := varsCmd.String("file", "", "JSON file holding the job variables")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "list":
		_ = listCmd.Parse(os.Args[2:])
		err = list(*listPath)
	case "validate":
		_ = validateCmd.Parse(os.Args[2:])
		err = validate(*validatePath)
	case "vars":
		_ = varsCmd.Parse(os.Args[2:])
		if *taskType == "" || *varsFile == "" {
			fmt.Println("Error: task and file are required for vars.")
			varsCmd.Usage()
			os.Exit(1)
		}
		err = checkVariables(*varsPath, *taskType, *varsFile)
	default:
		help()
		return
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func load(path string) (*registry.ActivityRegistry, error) {
	if path == "" {
		return registry.Load()
	}
	return registry.LoadRegistry(path)
}

func list(path string) error {
	reg, err := load(path)
	if err != nil {
		return err
	}
	for _, a := range reg.Activities {
		fmt.Printf("%-22s %-10s timeout=%-5s retries=%d  %s\n", a.TaskType, a.Category, a.Timeout, a.Retries, a.DisplayName)
	}
	return nil
}

func validate(path string) error {
	reg, err := load(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if len(reg.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}
	for _, a := range reg.Activities {
		if a.ID == "" || a.DisplayName == "" || a.Category == "" {
			return fmt.Errorf("activity %q is missing id, displayName or category", a.TaskType)
		}
		if _, err := reg.Validator(a.TaskType); err != nil {
			return err
		}
	}
	fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

func checkVariables(path, taskType, file string) error {
	reg, err := load(path)
	if err != nil {
		return err
	}
	v, err := reg.Validator(taskType)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	if err := v.Validate(data); err != nil {
		return err
	}
	fmt.Printf("Variables in %s match the %s input schema.\n", file, taskType)
	return nil
}

func help() {
	fmt.Println(`
Usage: registry-check <command> [flags]

Commands:
  list      List the registered task types
  validate  Check the registry and compile every input schema
  vars      Validate a job variables file against a task's input schema

Examples:
  registry-check list
  registry-check validate -path pkg/registry/tasks.json
  registry-check vars -task record-interaction -file vars.json`)
}
