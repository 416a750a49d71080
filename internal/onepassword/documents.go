package onepassword

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pricheal/refreshkeys/internal/agent"
	kerrors "github.com/pricheal/refreshkeys/internal/errors"
)

// Document is an entry of `op list documents`.
type Document struct {
	UUID     string `json:"uuid"`
	Overview struct {
		Title string `json:"title"`
	} `json:"overview"`
}

// Item is the subset of `op get item` output that holds custom fields.
type Item struct {
	Details struct {
		Sections []Section `json:"sections"`
	} `json:"details"`
}

type Section struct {
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// Field is a custom item field. T is the label and V the value.
type Field struct {
	K string `json:"k"`
	N string `json:"n"`
	T string `json:"t"`
	V string `json:"v"`
}

// FieldValue returns the value of the first field labelled label.
func (i *Item) FieldValue(label string) (string, bool) {
	for _, section := range i.Details.Sections {
		for _, field := range section.Fields {
			if field.T == label {
				return field.V, true
			}
		}
	}
	return "", false
}

func retrievalError(step string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", step, kerrors.ErrCredentialRetrievalFailed)
	}
	return fmt.Errorf("%s: %w: %w", step, kerrors.ErrCredentialRetrievalFailed, err)
}

// ListDocuments returns every document visible to the session.
func (c *Client) ListDocuments(ctx context.Context, token string) ([]Document, error) {
	out, err := c.Runner.Output(ctx, c.program(), "list", "documents", "--session", token)
	if err != nil {
		return nil, retrievalError("listing documents", err)
	}
	var documents []Document
	if err := json.Unmarshal(out, &documents); err != nil {
		return nil, retrievalError("parsing document list", err)
	}
	return documents, nil
}

// GetItem returns the detail record of the item with uuid.
func (c *Client) GetItem(ctx context.Context, token, uuid string) (*Item, error) {
	out, err := c.Runner.Output(ctx, c.program(), "get", "item", uuid, "--session", token)
	if err != nil {
		return nil, retrievalError("getting item "+uuid, err)
	}
	var item Item
	if err := json.Unmarshal(out, &item); err != nil {
		return nil, retrievalError("parsing item "+uuid, err)
	}
	return &item, nil
}

// FetchCredentialPair reads both passphrases using an authenticated session.
func (c *Client) FetchCredentialPair(ctx context.Context, token string) (agent.CredentialPair, error) {
	docs := c.Settings.Documents

	documents, err := c.ListDocuments(ctx, token)
	if err != nil {
		return agent.CredentialPair{}, err
	}

	uuids := map[string]string{}
	for _, document := range documents {
		switch document.Overview.Title {
		case docs.SSHTitle, docs.GPGTitle:
			uuids[document.Overview.Title] = document.UUID
		}
	}

	passphrase := func(title string) (string, error) {
		uuid, ok := uuids[title]
		if !ok || uuid == "" {
			return "", retrievalError(fmt.Sprintf("document %q not found", title), nil)
		}
		item, err := c.GetItem(ctx, token, uuid)
		if err != nil {
			return "", err
		}
		value, ok := item.FieldValue(docs.PassphraseLabel)
		if !ok || value == "" {
			return "", retrievalError(fmt.Sprintf("document %q has no %s field", title, docs.PassphraseLabel), nil)
		}
		c.Logger.Debugf("Read %s from %q", docs.PassphraseLabel, title)
		return value, nil
	}

	ssh, err := passphrase(docs.SSHTitle)
	if err != nil {
		return agent.CredentialPair{}, err
	}
	gpg, err := passphrase(docs.GPGTitle)
	if err != nil {
		return agent.CredentialPair{}, err
	}

	return agent.CredentialPair{SSH: ssh, GPG: gpg}, nil
}
