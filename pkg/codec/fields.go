package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Field names a settings profile value.
type Field string

type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "string"
	}
}

// FieldSpec ties a profile field to its wire token.
type FieldSpec struct {
	Field   Field
	Token   string
	Kind    Kind
	Default string
	Min     float64
	Max     float64
	Bounded bool
}

const (
	SetPrefix   = "s/"
	FetchPrefix = "g/"
	ExecPrefix  = "e/"
)

var (
	ErrUnknownField = errors.New("codec: settings field has no wire token")
	ErrUnknownToken = errors.New("codec: wire token has no settings field")
	ErrInvalidValue = errors.New("codec: invalid field value")
)

const (
	FirstTurnOnFlag          Field = "first_turn_on_flag"
	EnabledFlag              Field = "enabled_flag"
	ConnectionScheduleStart  Field = "connection_schedule_start"
	ConnectionScheduleStop   Field = "connection_schedule_stop"
	MeasurementInterval      Field = "measurement_interval"
	GSMTimeout               Field = "gsm_timeout"
	GPSTimeout               Field = "gps_timeout"
	GPSInEveryConnection     Field = "gps_in_every_connection"
	MessageSendRetries       Field = "message_send_retries"
	FireMinTemp              Field = "fire_min_temp"
	FireTempGradient         Field = "fire_temp_gradient"
	OrientationThreshold     Field = "orientation_threshold"
	CurrentOrientation       Field = "current_orientation"
	AccelerometerSensitivity Field = "accelerometer_sensitivity"
	AccelerometerDelay       Field = "accelerometer_delay"
	AccessPointName          Field = "access_point_name"
	ServerHost               Field = "server_host"
	ServerPort               Field = "server_port"
	Login                    Field = "login"
	Password                 Field = "password"
	UpdatesServerURL         Field = "updates_server_url"
	UpdatesServerPath        Field = "updates_server_path"
	FillAlertInterval        Field = "fill_alert_interval"
	FillAlertRange           Field = "fill_alert_range"
	FillAlertCount           Field = "fill_alert_count"
	MeasurementResultsNumber Field = "measurement_results_number"
)

// Band is one of the radar measurement ranges.
type Band string

const (
	BandClose Band = "close"
	BandMid   Band = "mid"
	BandFar   Band = "far"
)

// Bands lists measurement ranges in evaluation order.
var Bands = []Band{BandClose, BandMid, BandFar}

// BandParam is a per-band measurement parameter.
type BandParam string

const (
	DistanceBegin        BandParam = "distance_begin"
	DistanceLength       BandParam = "distance_length"
	Gain                 BandParam = "gain"
	ApproximationProfile BandParam = "approximation_profile"
	NoiseThreshold       BandParam = "noise_threshold"
	PeaksMergeDistance   BandParam = "peaks_merge_distance"
	PeaksSortingMethod   BandParam = "peaks_sorting_method"
	Downsampling         BandParam = "downsampling"
	SignalSamplesNumber  BandParam = "signal_samples_number"
	NoiseSamplesNumber   BandParam = "noise_samples_number"
	OnFlag               BandParam = "on_flag"
)

// BandField returns e.g. "mid_measurement_gain".
func BandField(b Band, p BandParam) Field {
	return Field(string(b) + "_measurement_" + string(p))
}

var bandTokens = map[BandParam]string{
	DistanceBegin:        "start",
	DistanceLength:       "len",
	Gain:                 "gain",
	ApproximationProfile: "s_profile",
	NoiseThreshold:       "threashold",
	PeaksMergeDistance:   "peak_merge_lim",
	PeaksSortingMethod:   "peak_sorting",
	Downsampling:         "downsampling",
	SignalSamplesNumber:  "sweep_avr",
	NoiseSamplesNumber:   "sweep_bkgd",
	OnFlag:               "meas_on",
}

func intSpec(f Field, token string, def, min, max int) FieldSpec {
	return FieldSpec{Field: f, Token: token, Kind: KindInt, Default: strconv.Itoa(def),
		Min: float64(min), Max: float64(max), Bounded: true}
}

func floatSpec(f Field, token string, def, min, max float64) FieldSpec {
	return FieldSpec{Field: f, Token: token, Kind: KindFloat, Default: strconv.FormatFloat(def, 'f', -1, 64),
		Min: min, Max: max, Bounded: true}
}

func stringSpec(f Field, token, def string, maxLen int) FieldSpec {
	return FieldSpec{Field: f, Token: token, Kind: KindString, Default: def, Max: float64(maxLen), Bounded: true}
}

type bandDefaults struct {
	begin, beginMin, beginMax     float64
	length, lengthMin, lengthMax  float64
	gain                          float64
	profile, profileMin           int
	threshold                     float64
	merge, mergeMax               float64
	downsampling, downsamplingMin int
	on                            int
}

func bandSpecs(b Band, d bandDefaults) []FieldSpec {
	token := func(p BandParam) string { return string(b) + "_r_" + bandTokens[p] }
	return []FieldSpec{
		floatSpec(BandField(b, DistanceBegin), token(DistanceBegin), d.begin, d.beginMin, d.beginMax),
		floatSpec(BandField(b, DistanceLength), token(DistanceLength), d.length, d.lengthMin, d.lengthMax),
		floatSpec(BandField(b, Gain), token(Gain), d.gain, 0, 1),
		intSpec(BandField(b, ApproximationProfile), token(ApproximationProfile), d.profile, d.profileMin, 5),
		floatSpec(BandField(b, NoiseThreshold), token(NoiseThreshold), d.threshold, 0.01, 0.99),
		floatSpec(BandField(b, PeaksMergeDistance), token(PeaksMergeDistance), d.merge, 0.001, d.mergeMax),
		intSpec(BandField(b, PeaksSortingMethod), token(PeaksSortingMethod), 1, 0, 3),
		intSpec(BandField(b, Downsampling), token(Downsampling), d.downsampling, d.downsamplingMin, 4),
		intSpec(BandField(b, SignalSamplesNumber), token(SignalSamplesNumber), 10, 5, 50),
		intSpec(BandField(b, NoiseSamplesNumber), token(NoiseSamplesNumber), 30, 10, 100),
		intSpec(BandField(b, OnFlag), token(OnFlag), d.on, 0, 1),
	}
}

// Fields is the static table of every settings profile field in wire order.
var Fields = buildFields()

func buildFields() []FieldSpec {
	specs := []FieldSpec{
		intSpec(FirstTurnOnFlag, "on_init_modem", 0, 0, 1),
		intSpec(EnabledFlag, "onFlag", 1, 0, 1),
		intSpec(ConnectionScheduleStart, "on_time", 0, 0, 24),
		intSpec(ConnectionScheduleStop, "off_time", 24, 0, 24),
		intSpec(MeasurementInterval, "intConn", 30, 5, 1440),
		intSpec(GSMTimeout, "tGsm", 30, 20, 600),
		intSpec(GPSTimeout, "tGps", 180, 0, 300),
		intSpec(GPSInEveryConnection, "fGps", 0, 0, 1),
		intSpec(MessageSendRetries, "retry", 20, 1, 300),
		intSpec(FireMinTemp, "tempFire", 70, 50, 80),
		intSpec(FireTempGradient, "gradient_temperature", 1, 1, 20),
		intSpec(OrientationThreshold, "orientTh", 10, 0, 125),
		intSpec(CurrentOrientation, "orient", 0, 0, 6),
		intSpec(AccelerometerSensitivity, "acelTh", 50, 20, 125),
		intSpec(AccelerometerDelay, "a111Delay", 0, 0, 300),
		stringSpec(AccessPointName, "nbiot", `"IP","iot"`, 64),
		stringSpec(ServerHost, "serverHost", "", 64),
		intSpec(ServerPort, "serverPort", 1883, 0, 65535),
		stringSpec(Login, "serverLogin", "", 32),
		stringSpec(Password, "serverPassword", "", 32),
		stringSpec(UpdatesServerURL, "upSer", "http://downloads.binology.com", 64),
		stringSpec(UpdatesServerPath, "upPath", "/firmware-updates/bfnew.bin", 64),
		intSpec(FillAlertInterval, "fillWakeup", 0, 0, 1440),
		intSpec(FillAlertRange, "fillAlert", 200, 20, 3500),
		intSpec(FillAlertCount, "fillCount", 0, 0, 10),
		intSpec(MeasurementResultsNumber, "result_r_length", 1, 0, 10),
	}
	specs = append(specs, bandSpecs(BandClose, bandDefaults{
		begin: 0.06, beginMin: -0.11, beginMax: 0.11,
		length: 0.46, lengthMin: 0, lengthMax: 0.46,
		gain: 0.5, profile: 1, profileMin: 1, threshold: 0.25,
		merge: 0.005, mergeMax: 0.46, downsampling: 1, downsamplingMin: 1, on: 0,
	})...)
	specs = append(specs, bandSpecs(BandMid, bandDefaults{
		begin: 0.2, beginMin: 0.05, beginMax: 2,
		length: 1.25, lengthMin: 0.1, lengthMax: 1.25,
		gain: 0.7, profile: 2, profileMin: 2, threshold: 0.25,
		merge: 0.01, mergeMax: 0.5, downsampling: 2, downsamplingMin: 2, on: 1,
	})...)
	specs = append(specs, bandSpecs(BandFar, bandDefaults{
		begin: 0.2, beginMin: 0.05, beginMax: 4.5,
		length: 2.5, lengthMin: 0.1, lengthMax: 2.5,
		gain: 0.7, profile: 4, profileMin: 2, threshold: 0.25,
		merge: 0.05, mergeMax: 0.5, downsampling: 2, downsamplingMin: 2, on: 1,
	})...)
	return specs
}

var (
	byField = map[Field]FieldSpec{}
	byToken = map[string]FieldSpec{}
)

func init() {
	for _, spec := range Fields {
		byField[spec.Field] = spec
		byToken[spec.Token] = spec
	}
}

// Lookup returns the table entry of a field.
func Lookup(f Field) (FieldSpec, error) {
	spec, ok := byField[f]
	if !ok {
		return FieldSpec{}, fmt.Errorf("%w: %s", ErrUnknownField, f)
	}
	return spec, nil
}

func TokenFor(f Field) (string, error) {
	spec, err := Lookup(f)
	if err != nil {
		return "", err
	}
	return spec.Token, nil
}

func FieldFor(token string) (Field, error) {
	spec, ok := byToken[token]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	return spec.Field, nil
}

// IsConfigToken reports whether a key sent by a device names a settings value.
func IsConfigToken(key string) bool {
	_, ok := byToken[key]
	return ok
}

func SetKey(token string) string   { return SetPrefix + token }
func FetchKey(token string) string { return FetchPrefix + token }
func ExecKey(cmd string) string    { return ExecPrefix + cmd }

// CheckValue validates a value against the kind and bounds of its field.
func (s FieldSpec) CheckValue(value string) error {
	switch s.Kind {
	case KindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidValue, s.Field, value)
		}
		if s.Bounded && (float64(n) < s.Min || float64(n) > s.Max) {
			return fmt.Errorf("%w: %s=%d out of [%g, %g]", ErrInvalidValue, s.Field, n, s.Min, s.Max)
		}
	case KindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidValue, s.Field, value)
		}
		if s.Bounded && (f < s.Min || f > s.Max) {
			return fmt.Errorf("%w: %s=%g out of [%g, %g]", ErrInvalidValue, s.Field, f, s.Min, s.Max)
		}
	case KindString:
		if s.Bounded && float64(len(value)) > s.Max {
			return fmt.Errorf("%w: %s longer than %g", ErrInvalidValue, s.Field, s.Max)
		}
		if strings.ContainsAny(value, PairSeparator) {
			return fmt.Errorf("%w: %s contains a pair separator", ErrInvalidValue, s.Field)
		}
	}
	return nil
}

// Validate checks the table itself: every field has a distinct token and a
// default that fits its own bounds. It is run once at startup.
func Validate() error {
	seenFields := make(map[Field]bool, len(Fields))
	seenTokens := make(map[string]Field, len(Fields))
	var errs []error
	for _, spec := range Fields {
		if spec.Token == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownField, spec.Field))
			continue
		}
		if seenFields[spec.Field] {
			errs = append(errs, fmt.Errorf("codec: duplicate field %s", spec.Field))
		}
		if other, dup := seenTokens[spec.Token]; dup {
			errs = append(errs, fmt.Errorf("codec: token %s shared by %s and %s", spec.Token, other, spec.Field))
		}
		seenFields[spec.Field] = true
		seenTokens[spec.Token] = spec.Field
		if spec.Default != "" {
			if err := spec.CheckValue(spec.Default); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, b := range Bands {
		for p := range bandTokens {
			if !seenFields[BandField(b, p)] {
				errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownField, BandField(b, p)))
			}
		}
	}
	return errors.Join(errs...)
}

// MustValidate panics when the field table is inconsistent.
func MustValidate() {
	if err := Validate(); err != nil {
		panic(err)
	}
}
