package tool

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/Chative-Telecom-Assistant/agent/customer"
	"github.com/tanpawarit/Chative-Telecom-Assistant/agent/diagnostics"
	"github.com/tanpawarit/Chative-Telecom-Assistant/agent/incentive"
)

const (
	ToolSayHello                  = "say_hello"
	ToolSayGoodbye                = "say_goodbye"
	ToolGetCustomerInfo           = "get_customer_info"
	ToolNetworkDiagnostics        = "network_diagnostics"
	ToolCheckIncentiveEligibility = "check_incentive_eligibility"
)

type CustomerLookup interface {
	Lookup(customerID string) (customer.Record, error)
}

type Diagnoser interface {
	Diagnose(areaCode string) (diagnostics.Report, error)
}

type EligibilityEvaluator interface {
	Evaluate(age float64, gender string) incentive.Verdict
}

// Backends are the mock data services the telecom tools read from.
type Backends struct {
	Customers   CustomerLookup
	Diagnostics Diagnoser
	Incentives  EligibilityEvaluator
}

// NewTelecomRegistry registers the assistant's tools in the order they are
// offered to the model.
func NewTelecomRegistry(b Backends) (*Registry, error) {
	if b.Customers == nil || b.Diagnostics == nil || b.Incentives == nil {
		return nil, fmt.Errorf("telecom registry: customers, diagnostics and incentives backends are required")
	}

	r := NewRegistry()
	entries := []struct {
		schema  Schema
		handler Handler
	}{
		{sayHelloSchema, sayHello},
		{sayGoodbyeSchema, sayGoodbye},
		{getCustomerInfoSchema, getCustomerInfo(b.Customers)},
		{networkDiagnosticsSchema, networkDiagnostics(b.Diagnostics)},
		{incentiveSchema, checkIncentiveEligibility(b.Incentives)},
	}
	for _, e := range entries {
		if err := r.Register(e.schema, e.handler); err != nil {
			return nil, err
		}
	}
	return r, nil
}

var (
	sayHelloSchema = Schema{
		Name:        ToolSayHello,
		Description: "Greet the user. Use at the start of a conversation or when the user says hello.",
		Params: []ParamSpec{
			{Name: "name", Type: ParamString, Description: "The user's name, if they gave one."},
		},
	}
	sayGoodbyeSchema = Schema{
		Name:        ToolSayGoodbye,
		Description: "Say goodbye when the user ends the conversation.",
	}
	getCustomerInfoSchema = Schema{
		Name:        ToolGetCustomerInfo,
		Description: "Look up a customer's account by customer ID and return tenure, charges, churn status and account details.",
		Params: []ParamSpec{
			{Name: "customerID", Type: ParamString, Required: true, Description: "Customer ID, for example 7590-VHVEG."},
		},
	}
	networkDiagnosticsSchema = Schema{
		Name:        ToolNetworkDiagnostics,
		Description: "Check network health, outages and latency for a ZIP or area code.",
		Params: []ParamSpec{
			{Name: "area_code", Type: ParamString, Required: true, Description: "ZIP or area code to diagnose."},
		},
	}
	incentiveSchema = Schema{
		Name:        ToolCheckIncentiveEligibility,
		Description: "Check whether the customer qualifies for a retention incentive. Ask the customer for age and gender first.",
		Params: []ParamSpec{
			{Name: "age", Type: ParamNumber, Required: true, Description: "Customer age in years."},
			{Name: "gender", Type: ParamString, Required: true, Description: "Customer gender as they stated it."},
		},
	}
)

func sayHello(_ context.Context, args Args) (any, error) {
	greeting := "Hello there!"
	if name := args.String("name"); name != "" {
		greeting = fmt.Sprintf("Hello, %s!", name)
	}
	return greeting + " I am an AI agent for the ACME telecom company. I can help you with questions about your service, " +
		"check for network outages in your area and provide information about your plan. How can I help you?", nil
}

func sayGoodbye(context.Context, Args) (any, error) {
	return "Goodbye! Have a great day.", nil
}

type customerInfoArgs struct {
	CustomerID string `mapstructure:"customerID"`
}

func getCustomerInfo(customers CustomerLookup) Handler {
	return func(_ context.Context, args Args) (any, error) {
		var in customerInfoArgs
		if err := args.Decode(&in); err != nil {
			return nil, err
		}
		log.Debug().Str("customer_id", in.CustomerID).Msg("customer lookup")
		rec, err := customers.Lookup(in.CustomerID)
		if err != nil {
			return nil, err
		}
		return rec.Summary(), nil
	}
}

func networkDiagnostics(d Diagnoser) Handler {
	return func(_ context.Context, args Args) (any, error) {
		areaCode := args.String("area_code")
		log.Debug().Str("area_code", areaCode).Msg("network diagnostics")
		report, err := d.Diagnose(areaCode)
		if err != nil {
			return nil, err
		}
		return report.Report, nil
	}
}

type incentiveArgs struct {
	Age    float64 `mapstructure:"age"`
	Gender string  `mapstructure:"gender"`
}

func checkIncentiveEligibility(e EligibilityEvaluator) Handler {
	return func(_ context.Context, args Args) (any, error) {
		var in incentiveArgs
		if err := args.Decode(&in); err != nil {
			return nil, err
		}
		return e.Evaluate(in.Age, in.Gender).Message(), nil
	}
}
