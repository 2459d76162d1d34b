package i18n

// Message keys that are not keyword names.
const (
	KeyFalseSchema   = "falseSchema"
	KeyUnknownFormat = "unknownFormat"
	KeyMinContains   = "minContains"
	KeyMaxContains   = "maxContains"
	KeyDataSchema    = "dataSchema"
)

var english = map[string]string{
	"type":                 `Value is "[[received]]" but should be [[expected]]`,
	"const":                `Expected "[[value]]"`,
	"enum":                 "Value should match one of the values specified by the enum",
	"minimum":              "[[received]] is less than [[limit]]",
	"maximum":              "[[received]] is greater than [[limit]]",
	"exclusiveMinimum":     "[[received]] is less than or equal to [[limit]]",
	"exclusiveMaximum":     "[[received]] is greater than or equal to [[limit]]",
	"multipleOf":           "[[received]] is not a multiple of [[divisor]]",
	"minLength":            "Value is not longer than or equal to [[limit]] characters",
	"maxLength":            "Value is not shorter than or equal to [[limit]] characters",
	"pattern":              "The string value does not match the pattern [[pattern]]",
	"format":               `Value does not match format "[[format]]"`,
	KeyUnknownFormat:       `Cannot validate unknown format "[[format]]"`,
	"minItems":             "Value has fewer than [[limit]] items",
	"maxItems":             "Value has more than [[limit]] items",
	"uniqueItems":          "Found duplicates at the following index pairs: [[duplicates]]",
	"contains":             "Value does not contain any matching items",
	KeyMinContains:         "Value contains [[received]] matching items, fewer than [[limit]]",
	KeyMaxContains:         "Value contains [[received]] matching items, more than [[limit]]",
	"minProperties":        "Value has fewer than [[limit]] properties",
	"maxProperties":        "Value has more than [[limit]] properties",
	"required":             "Required properties [[missing]] are not present",
	"dependentRequired":    "Some required property dependencies are missing. The missing dependencies are: [[missing]]",
	"dependencies":         "Some dependencies are not satisfied: [[properties]]",
	"oneOf":                "Expected 1 matching subschema but found [[count]]",
	"anyOf":                "Value does not match any subschema",
	"not":                  "Value should not validate against the schema",
	KeyFalseSchema:         "All values fail against the false schema",
	"propertyDependencies": "Value failed the schema selected by property [[property]]",
	"data":                 `Could not resolve "[[reference]]" for keyword "[[keyword]]"`,
	KeyDataSchema:          "Resolved data does not form a valid schema: [[error]]",
}

var spanish = map[string]string{
	"type":                 `El valor es "[[received]]" pero debería ser [[expected]]`,
	"const":                `Se esperaba "[[value]]"`,
	"enum":                 "El valor debe coincidir con uno de los valores especificados por enum",
	"minimum":              "[[received]] es menor que [[limit]]",
	"maximum":              "[[received]] es mayor que [[limit]]",
	"exclusiveMinimum":     "[[received]] es menor o igual que [[limit]]",
	"exclusiveMaximum":     "[[received]] es mayor o igual que [[limit]]",
	"multipleOf":           "[[received]] no es múltiplo de [[divisor]]",
	"minLength":            "El valor no tiene una longitud mayor o igual a [[limit]] caracteres",
	"maxLength":            "El valor no tiene una longitud menor o igual a [[limit]] caracteres",
	"pattern":              "La cadena no coincide con el patrón [[pattern]]",
	"format":               `El valor no coincide con el formato "[[format]]"`,
	KeyUnknownFormat:       `No se puede validar el formato desconocido "[[format]]"`,
	"minItems":             "El valor tiene menos de [[limit]] elementos",
	"maxItems":             "El valor tiene más de [[limit]] elementos",
	"uniqueItems":          "Se encontraron duplicados en los siguientes pares de índices: [[duplicates]]",
	"contains":             "El valor no contiene ningún elemento coincidente",
	KeyMinContains:         "El valor contiene [[received]] elementos coincidentes, menos de [[limit]]",
	KeyMaxContains:         "El valor contiene [[received]] elementos coincidentes, más de [[limit]]",
	"minProperties":        "El valor tiene menos de [[limit]] propiedades",
	"maxProperties":        "El valor tiene más de [[limit]] propiedades",
	"required":             "Faltan las propiedades requeridas [[missing]]",
	"dependentRequired":    "Faltan algunas dependencias de propiedades requeridas: [[missing]]",
	"dependencies":         "Algunas dependencias no se cumplen: [[properties]]",
	"oneOf":                "Se esperaba 1 subesquema coincidente pero se encontraron [[count]]",
	"anyOf":                "El valor no coincide con ningún subesquema",
	"not":                  "El valor no debe validar contra el esquema",
	KeyFalseSchema:         "Todos los valores fallan contra el esquema falso",
	"propertyDependencies": "El valor no cumple el esquema seleccionado por la propiedad [[property]]",
	"data":                 `No se pudo resolver "[[reference]]" para la palabra clave "[[keyword]]"`,
	KeyDataSchema:          "Los datos resueltos no forman un esquema válido: [[error]]",
}

var japanese = map[string]string{
	"type":                 `値は "[[received]]" ですが [[expected]] である必要があります`,
	"const":                `"[[value]]" が必要です`,
	"enum":                 "値は enum で指定された値のいずれかと一致する必要があります",
	"minimum":              "[[received]] は [[limit]] 未満です",
	"maximum":              "[[received]] は [[limit]] より大きいです",
	"exclusiveMinimum":     "[[received]] は [[limit]] 以下です",
	"exclusiveMaximum":     "[[received]] は [[limit]] 以上です",
	"multipleOf":           "[[received]] は [[divisor]] の倍数ではありません",
	"minLength":            "値の長さが [[limit]] 文字未満です",
	"maxLength":            "値の長さが [[limit]] 文字を超えています",
	"pattern":              "文字列がパターン [[pattern]] に一致しません",
	"format":               `値がフォーマット "[[format]]" に一致しません`,
	KeyUnknownFormat:       `未知のフォーマット "[[format]]" は検証できません`,
	"minItems":             "要素数が [[limit]] 未満です",
	"maxItems":             "要素数が [[limit]] を超えています",
	"uniqueItems":          "次のインデックスの組が重複しています: [[duplicates]]",
	"contains":             "一致する要素がありません",
	KeyMinContains:         "一致する要素が [[received]] 個で、[[limit]] 個未満です",
	KeyMaxContains:         "一致する要素が [[received]] 個で、[[limit]] 個を超えています",
	"minProperties":        "プロパティ数が [[limit]] 未満です",
	"maxProperties":        "プロパティ数が [[limit]] を超えています",
	"required":             "必須プロパティ [[missing]] が不足しています",
	"dependentRequired":    "依存する必須プロパティが不足しています: [[missing]]",
	"dependencies":         "依存関係が満たされていません: [[properties]]",
	"oneOf":                "一致するサブスキーマは 1 個である必要がありますが [[count]] 個でした",
	"anyOf":                "どのサブスキーマにも一致しません",
	"not":                  "値はスキーマに一致してはいけません",
	KeyFalseSchema:         "false スキーマに対してすべての値が失敗します",
	"propertyDependencies": "プロパティ [[property]] が選択したスキーマに一致しません",
	"data":                 `キーワード "[[keyword]]" の "[[reference]]" を解決できません`,
	KeyDataSchema:          "解決したデータは有効なスキーマになりません: [[error]]",
}
