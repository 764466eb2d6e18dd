// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package awsclient

import (
	"github.com/juju/collections/set"
)

// diffTags computes the minimal changes needed to make the remote tag
// set match the desired one: pairs to add or overwrite, and keys to
// remove. Removal keys are sorted so the resulting provider calls are
// deterministic.
func diffTags(remote, desired map[string]string) (toAdd map[string]string, toRemove []string) {
	toAdd = make(map[string]string)
	for key, value := range desired {
		if current, ok := remote[key]; !ok || current != value {
			toAdd[key] = value
		}
	}
	stale := set.NewStrings()
	for key := range remote {
		if _, ok := desired[key]; !ok {
			stale.Add(key)
		}
	}
	if len(toAdd) == 0 {
		toAdd = nil
	}
	if stale.IsEmpty() {
		return toAdd, nil
	}
	return toAdd, stale.SortedValues()
}
