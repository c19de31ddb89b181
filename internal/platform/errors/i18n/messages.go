package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeUnknown               = "UNKNOWN"
	CodeUnauthenticated       = "UNAUTHENTICATED"
	CodeUserIDRequired        = "USER_ID_REQUIRED"
	CodeLogFoodNameEmpty      = "LOG_FOOD_NAME_EMPTY"
	CodeLogCaloriesNegative   = "LOG_CALORIES_NEGATIVE"
	CodeLogServingQtyInvalid  = "LOG_SERVING_QTY_INVALID"
	CodeLogServingUnitEmpty   = "LOG_SERVING_UNIT_EMPTY"
	CodeLogActivityIDEmpty    = "LOG_ACTIVITY_ID_EMPTY"
	CodeLogDurationInvalid    = "LOG_DURATION_INVALID"
	CodeLogDateInvalid        = "LOG_DATE_INVALID"
	CodeLogTimezoneInvalid    = "LOG_TIMEZONE_INVALID"
	CodeCaloriesMETInvalid    = "CALORIES_MET_INVALID"
	CodeProfileWeightInvalid  = "PROFILE_WEIGHT_INVALID"
	CodeRequestBodyInvalid    = "REQUEST_BODY_INVALID"
	CodePageTokenInvalid      = "PAGE_TOKEN_INVALID"
	CodeNutritionQueryEmpty   = "NUTRITION_QUERY_EMPTY"
	CodeCreditAmountNegative  = "CREDIT_AMOUNT_NEGATIVE"
	CodeCreditSourceInvalid   = "CREDIT_SOURCE_INVALID"
	CodeNotFound              = "NOT_FOUND"
	CodeActivityNotFound      = "ACTIVITY_NOT_FOUND"
	CodeStorageUnavailable    = "STORAGE_UNAVAILABLE"
	CodeNutritionLookupFailed = "NUTRITION_LOOKUP_FAILED"
)

var enUSMessages = map[Code]string{
	CodeUnknown:               "Something went wrong. Please try again.",
	CodeUnauthenticated:       "Please sign in again.",
	CodeUserIDRequired:        "A user is required for this action.",
	CodeLogFoodNameEmpty:      "Food name is required.",
	CodeLogCaloriesNegative:   "Calories cannot be negative.",
	CodeLogServingQtyInvalid:  "Serving quantity must be greater than zero.",
	CodeLogServingUnitEmpty:   "Serving unit is required.",
	CodeLogActivityIDEmpty:    "Choose an activity.",
	CodeLogDurationInvalid:    "Duration must be at least one minute.",
	CodeLogDateInvalid:        "Date {{.Value}} is not a valid YYYY-MM-DD date.",
	CodeLogTimezoneInvalid:    "Time zone {{.Value}} is not recognized.",
	CodeCaloriesMETInvalid:    "Activity intensity must be greater than zero.",
	CodeProfileWeightInvalid:  "Weight must be greater than zero.",
	CodeRequestBodyInvalid:    "The request could not be read.",
	CodePageTokenInvalid:      "The page token is not valid.",
	CodeNutritionQueryEmpty:   "Type a food to search for.",
	CodeCreditAmountNegative:  "Coin credit cannot be negative.",
	CodeCreditSourceInvalid:   "Coin credit needs a source.",
	CodeNotFound:              "Not found.",
	CodeActivityNotFound:      "Activity {{.ActivityID}} does not exist.",
	CodeStorageUnavailable:    "Storage is busy. Please retry.",
	CodeNutritionLookupFailed: "Food search is unavailable right now. Please retry.",
}

var idIDMessages = map[Code]string{
	CodeUnknown:               "Terjadi kesalahan. Silakan coba lagi.",
	CodeUnauthenticated:       "Silakan masuk kembali.",
	CodeUserIDRequired:        "Tindakan ini memerlukan pengguna.",
	CodeLogFoodNameEmpty:      "Nama makanan wajib diisi.",
	CodeLogCaloriesNegative:   "Kalori tidak boleh negatif.",
	CodeLogServingQtyInvalid:  "Jumlah porsi harus lebih dari nol.",
	CodeLogServingUnitEmpty:   "Satuan porsi wajib diisi.",
	CodeLogActivityIDEmpty:    "Pilih aktivitas.",
	CodeLogDurationInvalid:    "Durasi minimal satu menit.",
	CodeLogDateInvalid:        "Tanggal {{.Value}} bukan format YYYY-MM-DD yang valid.",
	CodeLogTimezoneInvalid:    "Zona waktu {{.Value}} tidak dikenali.",
	CodeCaloriesMETInvalid:    "Intensitas aktivitas harus lebih dari nol.",
	CodeProfileWeightInvalid:  "Berat badan harus lebih dari nol.",
	CodeRequestBodyInvalid:    "Permintaan tidak dapat dibaca.",
	CodePageTokenInvalid:      "Token halaman tidak valid.",
	CodeNutritionQueryEmpty:   "Ketik makanan yang ingin dicari.",
	CodeCreditAmountNegative:  "Kredit koin tidak boleh negatif.",
	CodeCreditSourceInvalid:   "Kredit koin memerlukan sumber.",
	CodeNotFound:              "Tidak ditemukan.",
	CodeActivityNotFound:      "Aktivitas {{.ActivityID}} tidak ada.",
	CodeStorageUnavailable:    "Penyimpanan sedang sibuk. Silakan coba lagi.",
	CodeNutritionLookupFailed: "Pencarian makanan sedang tidak tersedia. Silakan coba lagi.",
}
