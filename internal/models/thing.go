package models

import (
	"encoding/json"
)

// CommonFields is the field layout shared by every SensorThings entity.
// A nil Properties means the field was absent; an empty map means "{}".
type CommonFields struct {
	ID          int64
	Name        string
	Description string
	Properties  map[string]any
}

// Sensor describes the device or method behind a Datastream.
type Sensor struct {
	CommonFields
	EncodingType string
	Metadata     any
}

// ObservedProperty is the phenomenon a Datastream observes.
type ObservedProperty struct {
	CommonFields
	Definition string
}

// Datastream is one measurement channel of a Thing. It always carries a Sensor.
type Datastream struct {
	CommonFields
	UnitOfMeasurement map[string]any
	ObservedArea      map[string]any
	PhenomenonTime    *string
	ResultTime        *string
	ObservationType   string
	Sensor            Sensor
	ObservedProperty  *ObservedProperty
}

// Thing is the top-level monitored asset.
type Thing struct {
	CommonFields
	Datastreams []Datastream
}

func (c CommonFields) clone() CommonFields {
	return CommonFields{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Properties:  CloneMap(c.Properties),
	}
}

func (c CommonFields) encode(m FieldMap, style keyStyle, out map[string]any) {
	out[m.key("id", style)] = c.ID
	out[m.key("name", style)] = c.Name
	out[m.key("description", style)] = c.Description
	if c.Properties != nil {
		out[m.key("properties", style)] = CloneMap(c.Properties)
	}
}

// Clone returns a deep copy.
func (s Sensor) Clone() Sensor {
	return Sensor{
		CommonFields: s.CommonFields.clone(),
		EncodingType: s.EncodingType,
		Metadata:     CloneValue(s.Metadata),
	}
}

// WithName returns a copy with Name replaced.
func (s Sensor) WithName(name string) Sensor {
	c := s.Clone()
	c.Name = name
	return c
}

// WithDescription returns a copy with Description replaced.
func (s Sensor) WithDescription(description string) Sensor {
	c := s.Clone()
	c.Description = description
	return c
}

func (s Sensor) encode(style keyStyle) map[string]any {
	out := make(map[string]any)
	s.CommonFields.encode(SensorFields, style, out)
	out[SensorFields.key("encoding_type", style)] = s.EncodingType
	if s.Metadata != nil {
		out[SensorFields.key("metadata", style)] = CloneValue(s.Metadata)
	}
	return out
}

// Clone returns a deep copy.
func (o ObservedProperty) Clone() ObservedProperty {
	return ObservedProperty{
		CommonFields: o.CommonFields.clone(),
		Definition:   o.Definition,
	}
}

func (o ObservedProperty) encode(style keyStyle) map[string]any {
	out := make(map[string]any)
	o.CommonFields.encode(ObservedPropertyFields, style, out)
	if o.Definition != "" {
		out[ObservedPropertyFields.key("definition", style)] = o.Definition
	}
	return out
}

// Clone returns a deep copy, including the embedded Sensor and ObservedProperty.
func (d Datastream) Clone() Datastream {
	c := Datastream{
		CommonFields:      d.CommonFields.clone(),
		UnitOfMeasurement: CloneMap(d.UnitOfMeasurement),
		ObservedArea:      CloneMap(d.ObservedArea),
		PhenomenonTime:    cloneString(d.PhenomenonTime),
		ResultTime:        cloneString(d.ResultTime),
		ObservationType:   d.ObservationType,
		Sensor:            d.Sensor.Clone(),
	}
	if d.ObservedProperty != nil {
		op := d.ObservedProperty.Clone()
		c.ObservedProperty = &op
	}
	return c
}

// WithName returns a copy with Name replaced.
func (d Datastream) WithName(name string) Datastream {
	c := d.Clone()
	c.Name = name
	return c
}

// WithDescription returns a copy with Description replaced.
func (d Datastream) WithDescription(description string) Datastream {
	c := d.Clone()
	c.Description = description
	return c
}

// WithUnitOfMeasurement returns a copy holding a private copy of uom.
func (d Datastream) WithUnitOfMeasurement(uom map[string]any) Datastream {
	c := d.Clone()
	c.UnitOfMeasurement = CloneMap(uom)
	return c
}

// WithProperties returns a copy holding a private copy of props; nil clears them.
func (d Datastream) WithProperties(props map[string]any) Datastream {
	c := d.Clone()
	c.Properties = CloneMap(props)
	return c
}

// WithSensor returns a copy holding a private copy of sensor.
func (d Datastream) WithSensor(sensor Sensor) Datastream {
	c := d.Clone()
	c.Sensor = sensor.Clone()
	return c
}

func (d Datastream) encode(style keyStyle) map[string]any {
	out := make(map[string]any)
	d.CommonFields.encode(DatastreamFields, style, out)

	uom := CloneMap(d.UnitOfMeasurement)
	if uom == nil {
		uom = map[string]any{}
	}
	out[DatastreamFields.key("unit_of_measurement", style)] = uom
	if d.ObservedArea != nil {
		out[DatastreamFields.key("observed_area", style)] = CloneMap(d.ObservedArea)
	}
	if d.PhenomenonTime != nil {
		out[DatastreamFields.key("phenomenon_time", style)] = *d.PhenomenonTime
	}
	if d.ResultTime != nil {
		out[DatastreamFields.key("result_time", style)] = *d.ResultTime
	}
	if d.ObservationType != "" {
		out[DatastreamFields.key("observation_type", style)] = d.ObservationType
	}
	out[DatastreamFields.key("sensor", style)] = d.Sensor.encode(style)
	if d.ObservedProperty != nil {
		out[DatastreamFields.key("observed_property", style)] = d.ObservedProperty.encode(style)
	}
	return out
}

// Clone returns a deep copy of the whole tree.
func (t Thing) Clone() Thing {
	c := Thing{
		CommonFields: t.CommonFields.clone(),
		Datastreams:  make([]Datastream, len(t.Datastreams)),
	}
	for i, ds := range t.Datastreams {
		c.Datastreams[i] = ds.Clone()
	}
	return c
}

// WithName returns a copy with Name replaced.
func (t Thing) WithName(name string) Thing {
	c := t.Clone()
	c.Name = name
	return c
}

// WithDescription returns a copy with Description replaced.
func (t Thing) WithDescription(description string) Thing {
	c := t.Clone()
	c.Description = description
	return c
}

// WithProperties returns a copy holding a private copy of props; nil clears them.
func (t Thing) WithProperties(props map[string]any) Thing {
	c := t.Clone()
	c.Properties = CloneMap(props)
	return c
}

// WithDatastreams returns a copy whose Datastreams are private copies of ds, in order.
func (t Thing) WithDatastreams(ds []Datastream) Thing {
	c := t.Clone()
	c.Datastreams = make([]Datastream, len(ds))
	for i, d := range ds {
		c.Datastreams[i] = d.Clone()
	}
	return c
}

func (t Thing) encode(style keyStyle) map[string]any {
	out := make(map[string]any)
	t.CommonFields.encode(ThingFields, style, out)
	ds := make([]any, len(t.Datastreams))
	for i, d := range t.Datastreams {
		ds[i] = d.encode(style)
	}
	out[ThingFields.key("datastreams", style)] = ds
	return out
}

// WireMap returns the Thing as a map keyed by SensorThings wire names.
func (t Thing) WireMap() map[string]any {
	return t.encode(wireKeys)
}

// InternalMap returns the Thing as a map keyed by internal field names.
func (t Thing) InternalMap() map[string]any {
	return t.encode(internalKeys)
}

// MarshalJSON emits wire names and omits unset optional fields.
func (t Thing) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.WireMap())
}

// UnmarshalJSON accepts wire or internal names and validates the payload.
func (t *Thing) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data, "Thing")
	if err != nil {
		return err
	}
	parsed, err := ValidateThing(raw)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

// String renders the wire JSON form, for logging.
func (t Thing) String() string {
	b, err := t.MarshalJSON()
	if err != nil {
		return "Thing(<unencodable>)"
	}
	return string(b)
}

// MarshalJSON emits wire names and omits unset optional fields.
func (d Datastream) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.encode(wireKeys))
}

// UnmarshalJSON accepts wire or internal names and validates the payload.
func (d *Datastream) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data, "Datastream")
	if err != nil {
		return err
	}
	parsed, err := ValidateDatastream(raw)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// MarshalJSON emits wire names and omits unset optional fields.
func (s Sensor) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.encode(wireKeys))
}

// UnmarshalJSON accepts wire or internal names and validates the payload.
func (s *Sensor) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data, "Sensor")
	if err != nil {
		return err
	}
	parsed, err := ValidateSensor(raw)
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}

// MarshalJSON emits wire names and omits unset optional fields.
func (o ObservedProperty) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.encode(wireKeys))
}

// UnmarshalJSON accepts wire or internal names and validates the payload.
func (o *ObservedProperty) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data, "ObservedProperty")
	if err != nil {
		return err
	}
	parsed, err := ValidateObservedProperty(raw)
	if err != nil {
		return err
	}
	*o = *parsed
	return nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
