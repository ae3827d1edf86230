package model

// StepKind identifies a cell-level transformation.
type StepKind string

const (
	StepCleanString        StepKind = "clean_string"
	StepTrim               StepKind = "trim"
	StepLowercase          StepKind = "lowercase"
	StepUppercase          StepKind = "uppercase"
	StepRemoveSpecialChars StepKind = "remove_special_chars"
	StepCastToDate         StepKind = "cast_to_date"
	StepCastToNumber       StepKind = "cast_to_number"
	StepCastToString       StepKind = "cast_to_string"
	StepConvertTimezone    StepKind = "convert_timezone"
	StepFormatDate         StepKind = "format_date"
	StepCurrencyConversion StepKind = "currency_conversion"
	StepRoundNumber        StepKind = "round_number"
	StepReplaceText        StepKind = "replace_text"
	StepExtractSubstring   StepKind = "extract_substring"
	StepStandardizeFormat  StepKind = "standardize_format"
	StepConditional        StepKind = "conditional"
	StepAbsoluteValue      StepKind = "absolute_value"
	StepNegateNumber       StepKind = "negate_number"
	StepScaleNumber        StepKind = "scale_number"
	StepFillNull           StepKind = "fill_null"
	StepFlagMissing        StepKind = "flag_missing"
	StepExcludeIfNull      StepKind = "exclude_if_null"
)

// TransformStep is one operation of a cell pipeline. Params carry the
// kind-specific parameter bag; Order sequences the pipeline.
type TransformStep struct {
	ID     string         `json:"id" yaml:"id"`
	Kind   StepKind       `json:"kind" yaml:"kind"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	Order  int            `json:"order" yaml:"order"`
}

// Pipeline is an ordered step chain bound to one column of one side. Output
// goes to OutputColumn when set, else overwrites ColumnID.
type Pipeline struct {
	ID           string          `json:"id" yaml:"id"`
	Side         Side            `json:"side" yaml:"side"`
	ColumnID     string          `json:"columnId" yaml:"columnId"`
	OutputColumn string          `json:"outputColumn,omitempty" yaml:"outputColumn,omitempty"`
	Steps        []TransformStep `json:"steps" yaml:"steps"`
}

// StepResult records the outcome of one executed step.
type StepResult struct {
	StepID string `json:"stepId"`
	Kind   StepKind `json:"kind"`
	Input  Scalar `json:"input"`
	Output Scalar `json:"output"`
	Err    string `json:"error,omitempty"`
}

// PipelineResult is the outcome of running a full pipeline on one cell.
// Success is true iff every step succeeded; failed steps propagate their
// input so downstream steps still run.
type PipelineResult struct {
	Value       Scalar       `json:"value"`
	Success     bool         `json:"success"`
	StepResults []StepResult `json:"stepResults"`
}
