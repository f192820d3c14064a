package gateway

// Wire parameter names understood by the gateway.
const (
	ParamVersion           = "vnp_Version"
	ParamCommand           = "vnp_Command"
	ParamMerchantCode      = "vnp_TmnCode"
	ParamAmount            = "vnp_Amount"
	ParamCreateDate        = "vnp_CreateDate"
	ParamCurrency          = "vnp_CurrCode"
	ParamClientAddress     = "vnp_IpAddr"
	ParamLocale            = "vnp_Locale"
	ParamOrderInfo         = "vnp_OrderInfo"
	ParamOrderType         = "vnp_OrderType"
	ParamReturnURL         = "vnp_ReturnUrl"
	ParamTxnRef            = "vnp_TxnRef"
	ParamBankCode          = "vnp_BankCode"
	ParamBankTransactionNo = "vnp_BankTranNo"
	ParamCardType          = "vnp_CardType"
	ParamPayDate           = "vnp_PayDate"
	ParamTransactionNo     = "vnp_TransactionNo"
	ParamResponseCode      = "vnp_ResponseCode"
	ParamTransactionStatus = "vnp_TransactionStatus"
	ParamSecureHashType    = "vnp_SecureHashType"
	ParamSecureHash        = "vnp_SecureHash"
)

// TimestampLayout is the gateway's yyyyMMddHHmmss timestamp format.
const TimestampLayout = "20060102150405"

// amountScale is the fixed multiplier the gateway applies to amounts.
const amountScale = 2
