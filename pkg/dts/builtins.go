package dts

// builtinTypes lists the XML Schema built-in datatypes by local name.
var builtinTypes = map[string]bool{
	"anyType": true, "anySimpleType": true, "anyAtomicType": true,
	"string": true, "normalizedString": true, "token": true, "language": true,
	"Name": true, "NCName": true, "ID": true, "IDREF": true, "IDREFS": true,
	"ENTITY": true, "ENTITIES": true, "NMTOKEN": true, "NMTOKENS": true,
	"boolean": true, "base64Binary": true, "hexBinary": true,
	"float": true, "double": true, "decimal": true, "integer": true,
	"nonPositiveInteger": true, "negativeInteger": true, "long": true,
	"int": true, "short": true, "byte": true, "nonNegativeInteger": true,
	"unsignedLong": true, "unsignedInt": true, "unsignedShort": true,
	"unsignedByte": true, "positiveInteger": true,
	"duration": true, "dateTime": true, "time": true, "date": true,
	"gYearMonth": true, "gYear": true, "gMonthDay": true, "gDay": true,
	"gMonth": true, "anyURI": true, "QName": true, "NOTATION": true,
}

// builtinXMLAttributes are the attributes of the XML namespace, usable by
// ref without importing xml.xsd.
var builtinXMLAttributes = map[string]bool{
	"lang": true, "space": true, "base": true, "id": true,
}
