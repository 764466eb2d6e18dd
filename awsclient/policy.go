// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package awsclient

import (
	"encoding/json"

	"github.com/juju/errors"
)

// policyDocument is the subset of a resource policy document the
// client inspects. The provider hands these back as raw JSON strings.
type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Sid       string                    `json:"Sid"`
	Effect    string                    `json:"Effect"`
	Condition map[string]map[string]any `json:"Condition"`
}

// parsePolicyDocument decodes a raw policy document. An empty document
// decodes to a policy with no statements.
func parsePolicyDocument(raw string) (policyDocument, error) {
	var doc policyDocument
	if raw == "" {
		return doc, nil
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return policyDocument{}, errors.Annotate(err, "parsing policy document")
	}
	return doc, nil
}

// grantsSourceARN reports whether any statement in the document is
// conditioned on exactly the given source ARN. This is how an existing
// invoke grant for an API is recognised before adding another.
func (d policyDocument) grantsSourceARN(sourceARN string) bool {
	for _, statement := range d.Statement {
		arnLike, ok := statement.Condition["ArnLike"]
		if !ok {
			continue
		}
		if granted, ok := arnLike["AWS:SourceArn"].(string); ok && granted == sourceARN {
			return true
		}
	}
	return false
}

// marshalIndentedJSON renders a policy or API document the way the
// provider console does, so documents diff cleanly against what the
// provider stores.
func marshalIndentedJSON(doc map[string]any) ([]byte, error) {
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Trace(err)
	}
	return body, nil
}
