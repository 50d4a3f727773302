package services

import (
	"errors"
	"testing"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func TestValidatorLoadsAllSchemas(t *testing.T) {
	v := newTestValidator(t)
	for _, name := range []string{SchemaRegister, SchemaLogin, SchemaProfile, SchemaPassword, SchemaTopup, SchemaAdjust, SchemaAccount, SchemaProduct, SchemaPost} {
		if _, ok := v.schemas[name]; !ok {
			t.Errorf("missing schema %q", name)
		}
	}
}

func TestValidate_Valid(t *testing.T) {
	v := newTestValidator(t)

	cases := []struct {
		schema string
		body   string
	}{
		{SchemaRegister, `{"username":"alice","email":"alice@example.com","password":"secret1"}`},
		{SchemaLogin, `{"email":"alice@example.com","password":"x"}`},
		{SchemaTopup, `{"amount":50000,"method":"momo"}`},
		{SchemaAdjust, `{"amount":10,"direction":"debit"}`},
		{SchemaProfile, `{"username":"alicia"}`},
		{SchemaPassword, `{"current_password":"secret1","new_password":"secret2"}`},
		{SchemaAccount, `{"username":"bob","email":"bob@example.com","role":"admin"}`},
		{SchemaProduct, `{"name":"Netflix 1 month","price":40,"image":null}`},
		{SchemaPost, `{"title":"Hello","content":"...","is_premium":true,"premium_price":5}`},
	}
	for _, tc := range cases {
		t.Run(tc.schema, func(t *testing.T) {
			if err := v.Validate(tc.schema, []byte(tc.body)); err != nil {
				t.Fatalf("expected valid body, got: %v", err)
			}
		})
	}
}

func TestValidate_Invalid(t *testing.T) {
	v := newTestValidator(t)

	cases := []struct {
		name   string
		schema string
		body   string
	}{
		{"register missing password", SchemaRegister, `{"username":"alice","email":"a@b.c"}`},
		{"register short username", SchemaRegister, `{"username":"al","email":"a@b.c","password":"secret1"}`},
		{"password too short", SchemaPassword, `{"current_password":"secret1","new_password":"abc"}`},
		{"account unknown role", SchemaAccount, `{"username":"bob","email":"bob@example.com","role":"root"}`},
		{"topup amount as string", SchemaTopup, `{"amount":"50000","method":"momo"}`},
		{"topup unknown field", SchemaTopup, `{"amount":50000,"method":"momo","extra":1}`},
		{"adjust bad direction", SchemaAdjust, `{"amount":10,"direction":"sideways"}`},
		{"product negative price", SchemaProduct, `{"name":"x","price":-1}`},
		{"post missing title", SchemaPost, `{"content":"..."}`},
		{"not json", SchemaLogin, `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.schema, []byte(tc.body))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got: %v", err)
			}
		})
	}
}

func TestValidate_UnknownSchema(t *testing.T) {
	v := newTestValidator(t)
	err := v.Validate("nope", []byte(`{}`))
	if err == nil || errors.Is(err, ErrValidation) {
		t.Fatalf("expected non-validation error for unknown schema, got %v", err)
	}
}
