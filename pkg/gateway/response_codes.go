package gateway

// SuccessCode is the only response code that settles a payment.
const SuccessCode = "00"

const genericFailureMessage = "Payment failed"

var responseMessages = map[string]string{
	SuccessCode: "Transaction successful",
	"07":        "Amount deducted, transaction held on suspicion of fraud",
	"09":        "Card or account is not registered for internet banking",
	"10":        "Card or account verification failed more than 3 times",
	"11":        "Payment window expired",
	"12":        "Card or account is locked",
	"13":        "Incorrect one-time password",
	"24":        "Transaction cancelled by customer",
	"51":        "Insufficient account balance",
	"65":        "Daily transaction limit exceeded",
	"75":        "Issuing bank is under maintenance",
	"79":        "Payment password entered incorrectly too many times",
	"99":        "Other error",
}

// IsSuccess reports whether code settles the payment.
func IsSuccess(code string) bool {
	return code == SuccessCode
}

// ResponseMessage maps a gateway response code to a human-readable message.
// Unknown codes map to a generic failure.
func ResponseMessage(code string) string {
	if msg, ok := responseMessages[code]; ok {
		return msg
	}
	return genericFailureMessage
}
