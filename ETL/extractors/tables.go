package extractors

// TableConfig описывает извлечение одной таблицы источника в staging
type TableConfig struct {
	// Имя таблицы источника (для логирования)
	Name string

	// Запрос к продакшн базе данных
	Select string

	// Имена колонок в порядке, возвращаемом запросом
	Columns []string

	// Целевая таблица в staging
	Target string

	// Колонки, приводимые к булевому типу
	BoolColumns map[string]bool

	// Чувствительные колонки, хешируемые односторонне
	HashColumns map[string]bool
}

// TablesConfig — реестр таблиц, переносимых из продакшн БД в staging.
// Порядок определяет порядок обработки при перезагрузке.
var TablesConfig = []TableConfig{
	{
		Name:    "ps_address",
		Select:  "SELECT id_address, id_country, id_state, id_customer, id_customer_company, postcode, city, date_add, date_upd, active, deleted, `default`, has_phone FROM ps_address",
		Columns: []string{"id_address", "id_country", "id_state", "id_customer", "id_customer_company", "postcode", "city", "date_add", "date_upd", "active", "deleted", "default", "has_phone"},
		Target:  "sg_address",
		BoolColumns: map[string]bool{
			"active": true, "deleted": true, "default": true, "has_phone": true,
		},
	},
	{
		Name:    "ps_country",
		Select:  "SELECT id_country, id_zone, iso_code, call_prefix, active, contains_states, need_zip_code, zip_code_format, default_tax, name FROM ps_country",
		Columns: []string{"id_country", "id_zone", "iso_code", "call_prefix", "active", "contains_states", "need_zip_code", "zip_code_format", "default_tax", "name"},
		Target:  "sg_country",
		BoolColumns: map[string]bool{
			"active": true, "contains_states": true, "need_zip_code": true,
		},
	},
	{
		Name:    "ps_state",
		Select:  "SELECT id_state, id_country, iso_code, name, active FROM ps_state",
		Columns: []string{"id_state", "id_country", "iso_code", "name", "active"},
		Target:  "sg_state",
		BoolColumns: map[string]bool{
			"active": true,
		},
	},
	{
		Name:    "ps_customer",
		Select:  "SELECT id_customer, id_gender, id_default_group, email, birthday, newsletter, active, is_guest, deleted, date_add, date_upd FROM ps_customer",
		Columns: []string{"id_customer", "id_gender", "id_default_group", "hashed_login", "birthday", "newsletter", "active", "is_guest", "deleted", "date_add", "date_upd"},
		Target:  "sg_customer",
		BoolColumns: map[string]bool{
			"newsletter": true, "active": true, "is_guest": true, "deleted": true,
		},
		HashColumns: map[string]bool{
			"hashed_login": true,
		},
	},
	{
		Name:    "ps_customer_company",
		Select:  "SELECT id_customer_company, id_customer, name, verified, active, date_add, date_upd, id_address FROM ps_customer_company",
		Columns: []string{"id_customer_company", "id_customer", "name", "verified", "active", "date_add", "date_upd", "id_address"},
		Target:  "sg_customer_company",
		BoolColumns: map[string]bool{
			"verified": true, "active": true,
		},
	},
	{
		Name:    "ps_customer_group",
		Select:  "SELECT id_customer, id_group FROM ps_customer_group",
		Columns: []string{"id_customer", "id_group"},
		Target:  "sg_customer_group",
	},
	{
		Name:    "ps_gender",
		Select:  "SELECT id_gender, `type`, name FROM ps_gender",
		Columns: []string{"id_gender", "type", "name"},
		Target:  "sg_gender",
	},
	{
		Name:    "ps_group",
		Select:  "SELECT id_group, date_add, date_upd, is_wholesale, order_days_return, order_days_complaint, name FROM ps_group",
		Columns: []string{"id_group", "date_add", "date_upd", "is_wholesale", "order_days_return", "order_days_complaint", "name"},
		Target:  "sg_group",
		BoolColumns: map[string]bool{
			"is_wholesale": true,
		},
	},
	{
		Name:    "ps_category",
		Select:  "SELECT id_category, id_parent, level_depth, nleft, nright, active, date_add, date_upd, is_root_category, name FROM ps_category",
		Columns: []string{"id_category", "id_parent", "level_depth", "nleft", "nright", "active", "date_add", "date_upd", "is_root_category", "name"},
		Target:  "sg_category",
		BoolColumns: map[string]bool{
			"active": true, "is_root_category": true,
		},
	},
	{
		Name:    "ps_manufacturer",
		Select:  "SELECT id_manufacturer, name, date_add, date_upd, active FROM ps_manufacturer",
		Columns: []string{"id_manufacturer", "name", "date_add", "date_upd", "active"},
		Target:  "sg_manufacturer",
		BoolColumns: map[string]bool{
			"active": true,
		},
	},
	{
		Name:    "ps_product",
		Select:  "SELECT id_product, id_product_attribute, id_manufacturer, id_category_default, name, `group`, subgroup, gender, price, active, date_add, date_upd FROM ps_product",
		Columns: []string{"id_product", "id_product_attribute", "id_manufacturer", "id_category_default", "name", "group", "subgroup", "gender", "price", "active", "date_add", "date_upd"},
		Target:  "sg_product",
		BoolColumns: map[string]bool{
			"active": true,
		},
	},
	{
		Name:    "ps_product_attribute_combination",
		Select:  "SELECT id_attribute, id_product_attribute FROM ps_product_attribute_combination",
		Columns: []string{"id_attribute", "id_product_attribute"},
		Target:  "sg_product_attribute_combination",
	},
	{
		Name:    "ps_attribute",
		Select:  "SELECT id_attribute, id_attribute_group, color, name FROM ps_attribute",
		Columns: []string{"id_attribute", "id_attribute_group", "color", "name"},
		Target:  "sg_attribute",
	},
	{
		Name:    "ps_attribute_group",
		Select:  "SELECT id_attribute_group, is_color_group, name FROM ps_attribute_group",
		Columns: []string{"id_attribute_group", "is_color_group", "name"},
		Target:  "sg_attribute_group",
		BoolColumns: map[string]bool{
			"is_color_group": true,
		},
	},
	{
		Name:    "ps_currency",
		Select:  "SELECT id_currency, name, iso_code, iso_code_num, sign, blank, format, decimals, conversion_rate, default_vat_rate, deleted, active, default_on_instance FROM ps_currency",
		Columns: []string{"id_currency", "name", "iso_code", "iso_code_num", "sign", "blank", "format", "decimals", "conversion_rate", "default_vat_rate", "deleted", "active", "default_on_instance"},
		Target:  "sg_currency",
		BoolColumns: map[string]bool{
			"blank": true, "deleted": true, "active": true, "default_on_instance": true,
		},
	},
	{
		Name:    "ps_cart",
		Select:  "SELECT id_cart, id_customer, id_currency, date_add, date_upd FROM ps_cart",
		Columns: []string{"id_cart", "id_customer", "id_currency", "date_add", "date_upd"},
		Target:  "sg_cart",
	},
	{
		Name:    "ps_cart_product",
		Select:  "SELECT id_cart, id_product, id_product_attribute, quantity, date_add FROM ps_cart_product",
		Columns: []string{"id_cart", "id_product", "id_product_attribute", "quantity", "date_add"},
		Target:  "sg_cart_product",
	},
	{
		Name:    "ps_orders",
		Select:  "SELECT id_order, id_cart, id_customer, id_address_delivery, current_state, total_paid_tax_excl, total_paid_tax_incl, conversion_rate, carrier, payment, date_add, date_upd FROM ps_orders",
		Columns: []string{"id_order", "id_cart", "id_customer", "id_address_delivery", "current_state", "total_paid_tax_excl", "total_paid_tax_incl", "conversion_rate", "carrier", "payment", "date_add", "date_upd"},
		Target:  "sg_orders",
	},
	{
		Name:    "ps_order_detail",
		Select:  "SELECT id_order_detail, id_order, product_id, product_attribute_id, product_quantity, unit_price_tax_excl, unit_price_tax_incl, total_price_tax_excl, total_price_tax_incl, tax_rate FROM ps_order_detail",
		Columns: []string{"id_order_detail", "id_order", "product_id", "product_attribute_id", "product_quantity", "unit_price_tax_excl", "unit_price_tax_incl", "total_price_tax_excl", "total_price_tax_incl", "tax_rate"},
		Target:  "sg_order_detail",
	},
	{
		Name:    "ps_order_history",
		Select:  "SELECT id_order_history, id_order, id_order_state, date_add FROM ps_order_history",
		Columns: []string{"id_order_history", "id_order", "id_order_state", "date_add"},
		Target:  "sg_order_history",
	},
	{
		Name:    "ps_order_state",
		Select:  "SELECT id_order_state, invoice, slip, color, unremovable, hidden, shipped, paid, closed, is_canceled_state, can_send_repay, can_be_canceled, name FROM ps_order_state",
		Columns: []string{"id_order_state", "invoice", "slip", "color", "unremovable", "hidden", "shipped", "paid", "closed", "is_canceled_state", "can_send_repay", "can_be_canceled", "name"},
		Target:  "sg_order_state",
		BoolColumns: map[string]bool{
			"invoice": true, "slip": true, "unremovable": true, "hidden": true,
			"shipped": true, "paid": true, "closed": true, "is_canceled_state": true,
			"can_send_repay": true, "can_be_canceled": true,
		},
	},
	{
		Name:    "ps_order_slip",
		Select:  "SELECT id_order_slip, conversion_rate, id_customer, id_order, total_products_tax_excl, total_products_tax_incl, total_shipping_tax_excl, total_shipping_tax_incl, shipping_cost, amount, shipping_cost_amount, `partial`, date_add, date_upd FROM ps_order_slip",
		Columns: []string{"id_order_slip", "conversion_rate", "id_customer", "id_order", "total_products_tax_excl", "total_products_tax_incl", "total_shipping_tax_excl", "total_shipping_tax_incl", "shipping_cost", "amount", "shipping_cost_amount", "partial", "date_add", "date_upd"},
		Target:  "sg_order_slip",
	},
	{
		Name:    "ps_order_slip_detail",
		Select:  "SELECT id_order_slip, id_order_detail, product_quantity, unit_price_tax_excl, unit_price_tax_incl, total_price_tax_excl, total_price_tax_incl, amount_tax_excl, amount_tax_incl FROM ps_order_slip_detail",
		Columns: []string{"id_order_slip", "id_order_detail", "product_quantity", "unit_price_tax_excl", "unit_price_tax_incl", "total_price_tax_excl", "total_price_tax_incl", "amount_tax_excl", "amount_tax_incl"},
		Target:  "sg_order_slip_detail",
	},
}
