package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ValidationError reports a wire payload that does not match the entity shape.
// Field is a path such as "Datastreams[0].Sensor.encodingType".
type ValidationError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s %s", e.Entity, e.Field, e.Reason)
}

func (e *ValidationError) under(prefix string) *ValidationError {
	field := prefix
	if e.Field != "" {
		field = prefix + "." + e.Field
	}
	return &ValidationError{Entity: e.Entity, Field: field, Reason: e.Reason}
}

// ParseThing decodes and validates one Thing from JSON.
func ParseThing(data []byte) (*Thing, error) {
	raw, err := decodeObject(data, "Thing")
	if err != nil {
		return nil, err
	}
	return ValidateThing(raw)
}

func decodeObject(data []byte, entity string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &ValidationError{Entity: entity, Reason: "is not valid JSON: " + err.Error()}
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil, &ValidationError{Entity: entity, Reason: "must be a JSON object"}
	}
	return raw, nil
}

// ValidateThing builds a Thing from an untyped JSON object.
func ValidateThing(raw map[string]any) (*Thing, error) {
	f := fieldReader{entity: "Thing", fields: ThingFields, raw: raw}

	common, err := f.common()
	if err != nil {
		return nil, err
	}

	list, err := f.requireList("datastreams")
	if err != nil {
		return nil, err
	}
	datastreams := make([]Datastream, 0, len(list))
	for i, item := range list {
		prefix := fmt.Sprintf("%s[%d]", f.wire("datastreams"), i)
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &ValidationError{Entity: "Datastream", Field: prefix, Reason: "must be an object"}
		}
		ds, err := ValidateDatastream(obj)
		if err != nil {
			return nil, nest(err, prefix)
		}
		datastreams = append(datastreams, *ds)
	}

	return &Thing{CommonFields: common, Datastreams: datastreams}, nil
}

// ValidateDatastream builds a Datastream, including its required Sensor.
func ValidateDatastream(raw map[string]any) (*Datastream, error) {
	f := fieldReader{entity: "Datastream", fields: DatastreamFields, raw: raw}

	common, err := f.common()
	if err != nil {
		return nil, err
	}
	uom, err := f.requireMap("unit_of_measurement")
	if err != nil {
		return nil, err
	}
	area, err := f.optionalMap("observed_area")
	if err != nil {
		return nil, err
	}
	phenomenonTime, err := f.optionalString("phenomenon_time")
	if err != nil {
		return nil, err
	}
	resultTime, err := f.optionalString("result_time")
	if err != nil {
		return nil, err
	}
	observationType, err := f.optionalString("observation_type")
	if err != nil {
		return nil, err
	}

	sensorRaw, err := f.requireMap("sensor")
	if err != nil {
		return nil, err
	}
	sensor, err := ValidateSensor(sensorRaw)
	if err != nil {
		return nil, nest(err, f.wire("sensor"))
	}

	ds := &Datastream{
		CommonFields:      common,
		UnitOfMeasurement: uom,
		ObservedArea:      area,
		PhenomenonTime:    phenomenonTime,
		ResultTime:        resultTime,
		Sensor:            *sensor,
	}
	if observationType != nil {
		ds.ObservationType = *observationType
	}

	opRaw, err := f.optionalMap("observed_property")
	if err != nil {
		return nil, err
	}
	if opRaw != nil {
		op, err := ValidateObservedProperty(opRaw)
		if err != nil {
			return nil, nest(err, f.wire("observed_property"))
		}
		ds.ObservedProperty = op
	}

	return ds, nil
}

// ValidateSensor builds a Sensor.
func ValidateSensor(raw map[string]any) (*Sensor, error) {
	f := fieldReader{entity: "Sensor", fields: SensorFields, raw: raw}

	common, err := f.common()
	if err != nil {
		return nil, err
	}
	encodingType, err := f.requireString("encoding_type")
	if err != nil {
		return nil, err
	}
	s := &Sensor{CommonFields: common, EncodingType: encodingType}
	if v, ok := f.fields.lookup(raw, "metadata"); ok && v != nil {
		s.Metadata = normalizeValue(v)
	}
	return s, nil
}

// ValidateObservedProperty builds an ObservedProperty.
func ValidateObservedProperty(raw map[string]any) (*ObservedProperty, error) {
	f := fieldReader{entity: "ObservedProperty", fields: ObservedPropertyFields, raw: raw}

	common, err := f.common()
	if err != nil {
		return nil, err
	}
	definition, err := f.optionalString("definition")
	if err != nil {
		return nil, err
	}
	op := &ObservedProperty{CommonFields: common}
	if definition != nil {
		op.Definition = *definition
	}
	return op, nil
}

func nest(err error, prefix string) error {
	if ve, ok := err.(*ValidationError); ok {
		return ve.under(prefix)
	}
	return fmt.Errorf("%s: %w", prefix, err)
}

// fieldReader reads typed fields from a raw object through a FieldMap.
type fieldReader struct {
	entity string
	fields FieldMap
	raw    map[string]any
}

func (f fieldReader) wire(internal string) string {
	return f.fields.key(internal, wireKeys)
}

func (f fieldReader) fail(internal, reason string) error {
	return &ValidationError{Entity: f.entity, Field: f.wire(internal), Reason: reason}
}

func (f fieldReader) common() (CommonFields, error) {
	id, err := f.requireInt("id")
	if err != nil {
		return CommonFields{}, err
	}
	name, err := f.requireString("name")
	if err != nil {
		return CommonFields{}, err
	}
	description, err := f.requireString("description")
	if err != nil {
		return CommonFields{}, err
	}
	props, err := f.optionalMap("properties")
	if err != nil {
		return CommonFields{}, err
	}
	return CommonFields{ID: id, Name: name, Description: description, Properties: props}, nil
}

func (f fieldReader) requireInt(internal string) (int64, error) {
	v, ok := f.fields.lookup(f.raw, internal)
	if !ok || v == nil {
		return 0, f.fail(internal, "is required")
	}
	n, ok := asInt64(v)
	if !ok {
		return 0, f.fail(internal, "must be an integer")
	}
	return n, nil
}

func (f fieldReader) requireString(internal string) (string, error) {
	v, ok := f.fields.lookup(f.raw, internal)
	if !ok || v == nil {
		return "", f.fail(internal, "is required")
	}
	s, ok := v.(string)
	if !ok {
		return "", f.fail(internal, "must be a string")
	}
	return s, nil
}

func (f fieldReader) optionalString(internal string) (*string, error) {
	v, ok := f.fields.lookup(f.raw, internal)
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, f.fail(internal, "must be a string")
	}
	return &s, nil
}

func (f fieldReader) requireMap(internal string) (map[string]any, error) {
	m, err := f.optionalMap(internal)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, f.fail(internal, "is required")
	}
	return m, nil
}

func (f fieldReader) optionalMap(internal string) (map[string]any, error) {
	v, ok := f.fields.lookup(f.raw, internal)
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, f.fail(internal, "must be an object")
	}
	return normalizeValue(m).(map[string]any), nil
}

func (f fieldReader) requireList(internal string) ([]any, error) {
	v, ok := f.fields.lookup(f.raw, internal)
	if !ok || v == nil {
		return nil, f.fail(internal, "is required")
	}
	list, ok := v.([]any)
	if !ok {
		return nil, f.fail(internal, "must be an array")
	}
	return list, nil
}
