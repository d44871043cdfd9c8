// entry.go — нормализация записей пропусков.
// Имя посетителя подставляется из нормализованного списка посетителей
// по идентификатору; при отсутствии — из name-подобных полей сырой записи,
// в крайнем случае синтезируется заглушка с идентификатором.
package normalize

import (
	"fmt"

	"github.com/propusk/admin-console/internal/domain/model"
)

// Списки кандидатов ключей для полей записи пропуска.
// Первый кандидат каждого списка — каноническое имя поля.
var (
	entryIDKeys          = []string{"id", "Id", "ID", "entryId", "EntryId", "visitorPassId", "VisitorPassId"}
	entryVisitorIDKeys   = []string{"visitorId", "VisitorId", "visitorID", "visitor_id", "vId", "VId"}
	entryGatepassKeys    = []string{"gatepassNo", "GatepassNo", "gatePassNo", "GatePassNo", "gatepass", "Gatepass"}
	entryVehicleTypeKeys = []string{"vehicleType", "VehicleType", "vehicletype"}
	entryVehicleNoKeys   = []string{"vehicleNo", "VehicleNo", "vehicleNumber", "VehicleNumber", "vehicleno"}
	entryDateKeys        = []string{"date", "Date", "entryDate", "EntryDate"}
	entryInTimeKeys      = []string{"inTime", "InTime", "intime", "timeIn", "TimeIn"}
	entryOutTimeKeys     = []string{"outTime", "OutTime", "outtime", "timeOut", "TimeOut"}
	entryHostUserKeys    = []string{"hostUserId", "HostUserId", "toMeetUserId", "ToMeetUserId", "userId", "UserId"}
	entryPurposeKeys     = []string{"purpose", "Purpose", "reason", "Reason"}
	entryCanteenKeys     = []string{"isCanteen", "IsCanteen", "canteen", "Canteen"}
	entryStayKeys        = []string{"isStay", "IsStay", "stay", "Stay", "isNightStay", "IsNightStay"}
	entryApprovedKeys    = []string{"isApproved", "IsApproved", "adminApproved", "AdminApproved", "isAdminApproved", "IsAdminApproved"}
	entryUserApprKeys    = []string{"isUserApproved", "IsUserApproved", "userApproved", "UserApproved"}
	entryRejectedKeys    = []string{"isRejected", "IsRejected", "rejected", "Rejected", "isReject", "IsReject"}
	entryNameKeys        = []string{"visitorName", "VisitorName", "name", "Name"}

	// entryListKeys — доменные ключи конвертов для списка записей.
	entryListKeys = []string{"visitorEntries", "VisitorEntries", "entries", "Entries"}
)

// Entry нормализует одну сырую запись пропуска.
// visitors — нормализованный справочник посетителей для подстановки имени
// (может быть nil — тогда используется заглушка).
func Entry(raw Record, visitors []model.Visitor) model.VisitorEntry {
	entry := model.VisitorEntry{
		ID:             raw.ID(entryIDKeys...),
		VisitorID:      raw.ID(entryVisitorIDKeys...),
		GatepassNo:     raw.Str(entryGatepassKeys...),
		VehicleType:    raw.Str(entryVehicleTypeKeys...),
		VehicleNo:      raw.Str(entryVehicleNoKeys...),
		Date:           raw.Str(entryDateKeys...),
		InTime:         raw.Str(entryInTimeKeys...),
		OutTime:        raw.Str(entryOutTimeKeys...),
		HostUserID:     raw.ID(entryHostUserKeys...),
		Purpose:        raw.Str(entryPurposeKeys...),
		IsCanteen:      raw.Flag(entryCanteenKeys...),
		IsStay:         raw.Flag(entryStayKeys...),
		IsApproved:     raw.Flag(entryApprovedKeys...),
		IsUserApproved: raw.Flag(entryUserApprKeys...),
		IsRejected:     raw.Flag(entryRejectedKeys...),
	}

	entry.VisitorName = resolveVisitorName(raw, entry.VisitorID, visitors)
	return entry
}

// Entries нормализует сырой список записей пропусков (массив или конверт).
func Entries(raw any, visitors []model.Visitor) []model.VisitorEntry {
	records := UnwrapList(raw, entryListKeys...)
	result := make([]model.VisitorEntry, 0, len(records))
	for _, rec := range records {
		result = append(result, Entry(rec, visitors))
	}
	return result
}

// resolveVisitorName подставляет имя посетителя: справочник → сырая запись → заглушка.
func resolveVisitorName(raw Record, visitorID int64, visitors []model.Visitor) string {
	for _, v := range visitors {
		if v.ID == visitorID && v.Name != "" {
			return v.Name
		}
	}
	if name := raw.Str(entryNameKeys...); name != "" {
		return name
	}
	return fmt.Sprintf("Visitor #%d", visitorID)
}
