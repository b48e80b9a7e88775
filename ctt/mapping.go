package ctt

import "strings"

// Shopify fulfillment event statuses that CTT status texts can map to
const (
	EventInTransit         = "in_transit"
	EventConfirmed         = "confirmed"
	EventOutForDelivery    = "out_for_delivery"
	EventDelivered         = "delivered"
	EventFailure           = "failure"
	EventReadyForPickup    = "ready_for_pickup"
	EventAttemptedDelivery = "attempted_delivery"
)

// mappingRules Checked in order: a text matching several rules gets the first one.
// Needles are in normalised (lower-cased, accent-stripped) form and cover the
// Spanish and Portuguese phrasings the carrier emits.
var mappingRules = []struct {
	status  string
	needles []string
}{
	{EventDelivered, []string{
		"entregado", "entregue", "entrega efectuada", "delivered",
		"entregado ao destinatario", "entregado al destinatario",
		"entregado en buzon", "buzon",
	}},
	{EventFailure, []string{
		"devolucion", "devolucao", "retorno", "retornado",
		"en devolucion", "devuelto", "devolvido",
		"direccion incorrecta",
		"destinatario desconocido", "desconocido",
		"rechazado", "recusado",
		"perdido", "extraviado", "danado", "roubado", "robado",
		"incidencia grave", "no entregable",
	}},
	{EventAttemptedDelivery, []string{
		"intento", "tentativa",
		"ausente", "nao foi possivel entregar",
		"no se pudo entregar", "no ha sido posible entregar",
		"cliente ausente", "destinatario ausente", "destinatario no disponible",
		"no atendido", "no localizado",
		"reparto fallido", "fallo en entrega", "entrega fallida",
	}},
	{EventReadyForPickup, []string{
		"listo para recoger", "listo p/ recoger", "pronto para levantamento",
		"disponible para recogida", "disponivel para recolha",
		"en punto", "punto de recogida", "ponto de recolha",
		"en tienda", "en oficina", "en delegacion",
		"locker", "parcel shop", "pick up", "pickup",
	}},
	{EventOutForDelivery, []string{
		"en reparto", "en distribucion",
		"saiu para entrega", "saiu p/ entrega", "em distribuicao",
		"out for delivery", "repartidor", "en ruta de entrega", "en ruta",
		"entrega hoy",
	}},
	{EventConfirmed, []string{
		"pendiente de recepcion",
		"admitido", "admitida",
		"aceptado", "aceite", "aceite pela ctt", "aceite pela rede",
		"registrado", "registado", "recebido", "recebida",
		"entrada en red", "entrada em rede",
		"grabado",
	}},
	{EventInTransit, []string{
		"en transito", "em transito",
		"en curso", "en proceso",
		"clasificado", "classificado",
		"en plataforma", "hub", "en centro", "en almac", "almacen", "armazem",
		"salida de", "salio de", "saida de", "departed",
		"llegada a", "chegada a", "arrived",
		"enviado",
		"cambio direccion y fecha de entrega",
	}},
}

// MapStatus maps a raw CTT status text onto a Shopify fulfillment event status.
// Ambiguous texts (pre-advice, "aguardando", bare info-received notices) match no
// rule and return false: no event should be created for them.
func MapStatus(statusText string) (string, bool) {
	s := Normalize(statusText)
	if s == "" {
		return "", false
	}

	for _, rule := range mappingRules {
		for _, needle := range rule.needles {
			if strings.Contains(s, needle) {
				return rule.status, true
			}
		}
	}
	return "", false
}
