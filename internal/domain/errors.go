package domain

import "errors"

var (
	// ErrBagNotFound возвращается, если корзина не найдена или истёк её TTL.
	ErrBagNotFound = errors.New("bag not found")
	// ErrBagIsEmpty возвращается при попытке оформить продажу по пустой корзине.
	ErrBagIsEmpty = errors.New("bag is empty")
	// ErrBagItemNotFound возвращается, если позиция с данным штрихкодом отсутствует в корзине.
	ErrBagItemNotFound = errors.New("bag item not found")
	// Ошибка пустого штрихкода в запросе.
	ErrBarcodeRequired = errors.New("barcode is required")
	// Ошибка некорректного количества (<= 0).
	ErrItemQuantityInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка отрицательной цены позиции.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка запроса количества сверх доступного остатка на складе.
	ErrInsufficientStock = errors.New("requested quantity exceeds available stock")
	// Ошибка снятия большего количества, чем лежит в корзине.
	ErrQuantityExceedsHeld = errors.New("quantity exceeds quantity held in bag")
	// Ошибка несоответствия суммы корзины сумме позиций.
	ErrTotalMismatch = errors.New("bag total does not match items sum")
	// Ошибка выхода цены со скидкой за пределы [0, totalPrice].
	ErrDiscountOutOfRange = errors.New("discounted price out of range")
	// Ошибка некорректных параметров пагинации (page и size должны быть >= 1).
	ErrPaginationInvalid = errors.New("page and size must be greater or equal to 1")

	// ErrCampaignNotFound возвращается, если кампания не найдена.
	ErrCampaignNotFound = errors.New("campaign not found")
	// ErrCampaignInactive возвращается для удалённой кампании или кампании вне окна дат.
	ErrCampaignInactive = errors.New("campaign is deleted or outside its active window")
	// ErrCampaignNotAttached возвращается при снятии кампании с корзины без кампании.
	ErrCampaignNotAttached = errors.New("bag has no campaign attached")
	// Ошибка отсутствующего названия кампании.
	ErrCampaignNameRequired = errors.New("campaign name is required")
	// Ошибка неизвестного вида скидки.
	ErrDiscountTypeInvalid = errors.New("unknown discount type")
	// Ошибка отрицательного значения скидки.
	ErrDiscountValueInvalid = errors.New("discount value must be non-negative")
	// Ошибка диапазона дат кампании (endDate < startDate).
	ErrCampaignDateRangeInvalid = errors.New("campaign end date precedes start date")

	// ErrSaleNotFound возвращается, если продажа не найдена.
	ErrSaleNotFound = errors.New("sale not found")
	// ErrSaleAlreadyCancelled сигнализирует повторную отмену уже отменённой продажи.
	ErrSaleAlreadyCancelled = errors.New("sale already cancelled")
	// Ошибка недостаточной оплаты наличными.
	ErrInsufficientPayment = errors.New("amount received is less than price to pay")
	// Ошибка неизвестного способа оплаты.
	ErrPaymentMethodInvalid = errors.New("unknown payment method")
	// Ошибка токена кассира без разделителя "<prefix>-<name>".
	ErrCashierTokenInvalid = errors.New("cashier identity token is malformed")
	// Ошибка диапазона дат фильтра продаж.
	ErrDateRangeInvalid = errors.New("filter end date precedes start date")

	// ErrProductNotFound возвращается каталогом для неизвестного или удалённого штрихкода.
	ErrProductNotFound = errors.New("product not found")

	// ErrReceiptRecordNotFound возвращается, если запись статуса чека отсутствует или истёк её TTL.
	ErrReceiptRecordNotFound = errors.New("receipt status record not found")

	// ErrTerminalDelivery сигнализирует исчерпание retry-попыток доставки сообщения.
	ErrTerminalDelivery = errors.New("message delivery failed terminally")
)

// IsInvalidInput сообщает, относится ли ошибка к классу некорректного запроса.
// Транспортный слой отображает такие ошибки в 400-й ответ.
func IsInvalidInput(err error) bool {
	for _, target := range []error{
		ErrBarcodeRequired,
		ErrItemQuantityInvalid,
		ErrItemPriceInvalid,
		ErrInsufficientStock,
		ErrQuantityExceedsHeld,
		ErrPaginationInvalid,
		ErrCampaignNameRequired,
		ErrDiscountTypeInvalid,
		ErrDiscountValueInvalid,
		ErrCampaignDateRangeInvalid,
		ErrCampaignInactive,
		ErrInsufficientPayment,
		ErrPaymentMethodInvalid,
		ErrCashierTokenInvalid,
		ErrDateRangeInvalid,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound сообщает, относится ли ошибка к классу отсутствующего ресурса.
func IsNotFound(err error) bool {
	for _, target := range []error{
		ErrBagNotFound,
		ErrBagItemNotFound,
		ErrCampaignNotFound,
		ErrSaleNotFound,
		ErrProductNotFound,
		ErrReceiptRecordNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
