package load

// DimensionSpecs возвращает спецификации измерений в порядке слияния.
// Все измерения идут через одно обобщенное SCD-слияние (DimensionMerger).
func DimensionSpecs() []DimensionSpec {
	return []DimensionSpec{
		{
			Name:         "dim_customer",
			Table:        "dim_customer",
			SurrogateKey: "customer_key",
			BusinessKeys: []string{"customerid_bk"},
			Attributes:   []string{"hashedemail", "defaultgroup", "birthdate", "gender", "businessaccount", "active"},
			StageQuery: `
			SELECT
				c.id_customer AS customerid_bk,
				c.hashed_login AS hashedemail,
				(SELECT gr.name FROM sg_group gr WHERE gr.id_group = c.id_default_group LIMIT 1) AS defaultgroup,
				DATE_FORMAT(c.birthday, '%Y-%m-%d') AS birthdate,
				(SELECT gen.name FROM sg_gender gen WHERE gen.id_gender = c.id_gender LIMIT 1) AS gender,
				((SELECT cc.id_customer FROM sg_customer_company cc WHERE cc.id_customer = c.id_customer LIMIT 1) IS NOT NULL) AS businessaccount,
				c.active AS active,
				c.date_add AS valid_from
			FROM sg_customer c
			ORDER BY c.id_customer`,
			HasValidFrom: true,
			NullLiterals: map[string][]string{
				"gender": {"[neuvádzam]"},
			},
			DimAttributeExprs: map[string]string{
				"birthdate": "DATE_FORMAT(birthdate, '%Y-%m-%d')",
			},
		},
		{
			Name:         "dim_product",
			Table:        "dim_product",
			SurrogateKey: "product_key",
			BusinessKeys: []string{"productid_bk", "productattributeid_bk"},
			Attributes:   []string{"productname", "manufacturer", "defaultcategory", "market_group", "market_subgroup", "market_gender", "price", "active"},
			StageQuery: `
			SELECT
				p.id_product AS productid_bk,
				COALESCE(p.id_product_attribute, 0) AS productattributeid_bk,
				p.name AS productname,
				m.name AS manufacturer,
				c.name AS defaultcategory,
				p.` + "`group`" + ` AS market_group,
				p.subgroup AS market_subgroup,
				p.gender AS market_gender,
				p.price AS price,
				p.active AS active,
				p.date_add AS valid_from
			FROM sg_product p
			LEFT JOIN sg_manufacturer m ON p.id_manufacturer = m.id_manufacturer
			LEFT JOIN sg_category c ON p.id_category_default = c.id_category
			ORDER BY p.id_product`,
			HasValidFrom: true,
		},
		{
			Name:         "dim_address",
			Table:        "dim_address",
			SurrogateKey: "address_key",
			BusinessKeys: []string{"addressid_bk"},
			Attributes:   []string{"customerid_bk", "country", "state", "city", "zipcode"},
			StageQuery: `
			SELECT
				a.id_address AS addressid_bk,
				a.id_customer AS customerid_bk,
				c.name AS country,
				s.name AS state,
				a.city AS city,
				a.postcode AS zipcode,
				a.date_add AS valid_from
			FROM sg_address a
			LEFT JOIN sg_country c ON c.id_country = a.id_country
			LEFT JOIN sg_state s ON s.id_state = a.id_state
			ORDER BY a.id_address`,
			HasValidFrom: true,
		},
		{
			Name:         "dim_attribute",
			Table:        "dim_attribute",
			SurrogateKey: "attribute_key",
			BusinessKeys: []string{"attributeid_bk"},
			Attributes:   []string{"attribute_name", "attribute_group"},
			StageQuery: `
			SELECT
				a.id_attribute AS attributeid_bk,
				a.name AS attribute_name,
				ag.name AS attribute_group
			FROM sg_attribute a
			LEFT JOIN sg_attribute_group ag ON a.id_attribute_group = ag.id_attribute_group
			ORDER BY a.id_attribute`,
		},
		{
			Name:         "dim_order_state",
			Table:        "dim_order_state",
			SurrogateKey: "orderstate_key",
			BusinessKeys: []string{"orderstateid_bk"},
			Attributes:   []string{"current_state"},
			StageQuery: `
			SELECT
				os.id_order_state AS orderstateid_bk,
				os.name AS current_state
			FROM sg_order_state os
			ORDER BY os.id_order_state`,
		},
	}
}
