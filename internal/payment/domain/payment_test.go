package domain

import "testing"

func validIntent() PaymentIntent {
	return PaymentIntent{
		MovieID: 1,
		Amount:  2,
		Card: CardDetails{
			CardNumber:     "4276123412341234",
			CardHolder:     "IVAN PETROV",
			ExpirationDate: "04/27",
			SecurityCode:   123,
		},
	}
}

func TestPaymentIntentValidate(t *testing.T) {
	if err := validIntent().Validate(); err != nil {
		t.Fatalf("valid intent rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*PaymentIntent)
	}{
		{"zero movie id", func(i *PaymentIntent) { i.MovieID = 0 }},
		{"zero amount", func(i *PaymentIntent) { i.Amount = 0 }},
		{"negative amount", func(i *PaymentIntent) { i.Amount = -1 }},
		{"short card number", func(i *PaymentIntent) { i.Card.CardNumber = "1234" }},
		{"alpha card number", func(i *PaymentIntent) { i.Card.CardNumber = "4276abcd12341234" }},
		{"empty holder", func(i *PaymentIntent) { i.Card.CardHolder = "" }},
		{"bad expiry month", func(i *PaymentIntent) { i.Card.ExpirationDate = "13/27" }},
		{"bad expiry format", func(i *PaymentIntent) { i.Card.ExpirationDate = "4/27" }},
		{"cvc too large", func(i *PaymentIntent) { i.Card.SecurityCode = 1000 }},
		{"cvc negative", func(i *PaymentIntent) { i.Card.SecurityCode = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			intent := validIntent()
			tc.mutate(&intent)
			if err := intent.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
