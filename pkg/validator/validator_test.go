package validator

import "testing"

type testPayload struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

func TestValidateStructSuccess(t *testing.T) {
	payload := testPayload{
		Email: "alice@university.edu",
		Code:  "482913",
	}

	if err := ValidateStruct(payload); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateStructFailures(t *testing.T) {
	payload := testPayload{
		Email: "invalid",
		Code:  "12ab",
	}

	err := ValidateStruct(payload)
	if err == nil {
		t.Fatal("expected validation error")
	}

	vErrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	foundEmail := false
	foundCode := false
	for _, v := range vErrs {
		switch v.Field {
		case "email":
			foundEmail = true
		case "code":
			foundCode = true
		}
	}

	if !foundEmail || !foundCode {
		t.Fatalf("expected email and code failures, got %v", vErrs)
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	err := ValidateStruct(testPayload{Email: "alice@university.edu", Code: "123"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	if got := err.Error(); got != "code failed on len=6" {
		t.Fatalf("unexpected message: %q", got)
	}
}
