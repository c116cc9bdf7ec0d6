package handlers

// isValidDatastoreName implements §4.6's general datastore enumeration:
// "running"|"startup"|"candidate"|"url"|"config" map to enumerated values;
// anything else is invalid.
func isValidDatastoreName(name string) bool {
	switch name {
	case "running", "startup", "candidate", "url", "config":
		return true
	default:
		return false
	}
}

// isValidDefaultOperation implements edit-config's default-operation enum.
func isValidDefaultOperation(op string) bool {
	switch op {
	case "merge", "replace", "none":
		return true
	default:
		return false
	}
}

// isValidErrorOption implements edit-config's error-option enum.
func isValidErrorOption(opt string) bool {
	switch opt {
	case "continue-on-error", "stop-on-error", "rollback-on-error":
		return true
	default:
		return false
	}
}

// isValidTestOption implements edit-config's test-option enum.
func isValidTestOption(opt string) bool {
	switch opt {
	case "notset", "testset", "set", "test":
		return true
	default:
		return false
	}
}
