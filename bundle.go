package nls

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// LocalizeKey identifies one extracted message. A key is either bare (only
// Key is set) or commented, carrying translator facing context alongside the
// key. The JSON form is a plain string for bare keys and
// {"key": ..., "comment": [...]} for commented ones.
type LocalizeKey struct {
	Key     string
	Comment []string
}

// Commented reports whether the key carries translator comments.
func (k LocalizeKey) Commented() bool {
	return len(k.Comment) > 0
}

func (k LocalizeKey) MarshalJSON() ([]byte, error) {
	if !k.Commented() {
		return json.Marshal(k.Key)
	}
	return json.Marshal(struct {
		Key     string   `json:"key"`
		Comment []string `json:"comment"`
	}{Key: k.Key, Comment: k.Comment})
}

func (k *LocalizeKey) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		k.Comment = nil
		return json.Unmarshal(trimmed, &k.Key)
	}

	var structured struct {
		Key     string   `json:"key"`
		Comment []string `json:"comment"`
	}
	if err := json.Unmarshal(trimmed, &structured); err != nil {
		return fmt.Errorf("localize key must be a string or a key/comment object: %w", err)
	}
	if structured.Key == "" {
		return fmt.Errorf("localize key object is missing a non-empty key")
	}
	k.Key = structured.Key
	k.Comment = structured.Comment
	return nil
}

// MessageBundle holds the ordered key and default message pairs extracted
// from one source file. Position i in Keys corresponds to position i in
// Messages; that correspondence is the contract every later stage relies on.
type MessageBundle struct {
	Keys     []LocalizeKey
	Messages []string
}

// Add appends one key/message pair.
func (b *MessageBundle) Add(key LocalizeKey, message string) {
	b.Keys = append(b.Keys, key)
	b.Messages = append(b.Messages, message)
}

// Len returns the number of extracted pairs.
func (b *MessageBundle) Len() int {
	return len(b.Messages)
}

type bundleJSON struct {
	Messages []string      `json:"messages"`
	Keys     []LocalizeKey `json:"keys"`
}

func (b MessageBundle) MarshalJSON() ([]byte, error) {
	out := bundleJSON{Messages: b.Messages, Keys: b.Keys}
	if out.Messages == nil {
		out.Messages = []string{}
	}
	if out.Keys == nil {
		out.Keys = []LocalizeKey{}
	}
	return json.Marshal(out)
}

func (b *MessageBundle) UnmarshalJSON(data []byte) error {
	var in bundleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if len(in.Keys) != len(in.Messages) {
		return fmt.Errorf("bundle has %d keys but %d messages", len(in.Keys), len(in.Messages))
	}
	b.Keys = in.Keys
	b.Messages = in.Messages
	return nil
}

// DuplicateKeyError reports two bundle positions flattening to the same key.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %q found while flattening bundle", e.Key)
}

// commentKey names the sibling entry holding a structured key's comment text.
func commentKey(key string) string {
	return "_" + key + ".comment"
}

// Flatten converts the bundle to its flat key to message form, inserting a
// space joined comment sibling for every commented key. Two positions that
// resolve to the same string key make the whole bundle unusable and fail with
// a DuplicateKeyError.
func (b *MessageBundle) Flatten() (*FlatTranslationObject, error) {
	flat := newFlatTranslationObject(b.Len())
	for i, key := range b.Keys {
		if flat.Has(key.Key) {
			return nil, &DuplicateKeyError{Key: key.Key}
		}
		flat.set(key.Key, b.Messages[i])
		if key.Commented() {
			sibling := commentKey(key.Key)
			if flat.Has(sibling) {
				return nil, &DuplicateKeyError{Key: sibling}
			}
			flat.set(sibling, strings.Join(key.Comment, " "))
		}
	}
	return flat, nil
}

// FlatTranslationObject is a single level key to message mapping. It keeps
// the order entries were inserted in so serialised output stays diffable
// between runs.
type FlatTranslationObject struct {
	order   []string
	entries map[string]string
}

func newFlatTranslationObject(capacity int) *FlatTranslationObject {
	return &FlatTranslationObject{
		order:   make([]string, 0, capacity),
		entries: make(map[string]string, capacity),
	}
}

func (f *FlatTranslationObject) set(key, message string) {
	if _, ok := f.entries[key]; !ok {
		f.order = append(f.order, key)
	}
	f.entries[key] = message
}

// Has reports whether the key is present.
func (f *FlatTranslationObject) Has(key string) bool {
	_, ok := f.entries[key]
	return ok
}

// Get returns the message stored for key.
func (f *FlatTranslationObject) Get(key string) (string, bool) {
	message, ok := f.entries[key]
	return message, ok
}

// Keys returns the entry keys in insertion order.
func (f *FlatTranslationObject) Keys() []string {
	keys := make([]string, len(f.order))
	copy(keys, f.order)
	return keys
}

// Len returns the number of entries, comment siblings included.
func (f *FlatTranslationObject) Len() int {
	return len(f.order)
}

func (f FlatTranslationObject) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, key := range f.order {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.entries[key])
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func (f *FlatTranslationObject) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("flat translation object must be a JSON object")
	}

	f.order = nil
	f.entries = make(map[string]string)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("flat translation object has a non string key")
		}
		var message string
		if err = dec.Decode(&message); err != nil {
			return fmt.Errorf("value of %q must be a string: %w", key, err)
		}
		f.set(key, message)
	}
	_, err = dec.Token()
	return err
}
