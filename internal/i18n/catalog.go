package i18n

var catalogs = map[string]map[string]string{
	"pt": {
		"app_title":             "Orçamentos",
		"dashboard":             "Orçamentos",
		"pipeline":              "Funil de vendas",
		"new_proposal":          "Novo orçamento",
		"edit_proposal":         "Editar orçamento",
		"number":                "Número",
		"date":                  "Data",
		"client":                "Cliente",
		"contact":               "Contato",
		"phone":                 "Telefone",
		"address":               "Endereço",
		"salesperson":           "Vendedor",
		"items":                 "Itens",
		"description":           "Descrição",
		"quantity":              "Qtd",
		"unit_price":            "Valor unitário",
		"line_total":            "Total",
		"total":                 "Total",
		"delivery_terms":        "Prazo de entrega",
		"payment_terms":         "Pagamento",
		"status":                "Status",
		"status_open":           "Aberto",
		"status_in_progress":    "Em negociação",
		"status_closed":         "Fechado",
		"status_cancelled":      "Cancelado",
		"actions":               "Ações",
		"save":                  "Salvar",
		"apply":                 "Atualizar",
		"back":                  "Voltar",
		"edit":                  "Editar",
		"preview":               "Visualizar",
		"print":                 "Imprimir",
		"pdf":                   "Baixar PDF",
		"share":                 "WhatsApp",
		"delete":                "Excluir",
		"confirm_delete":        "Excluir este orçamento? Esta ação não pode ser desfeita.",
		"add_item":              "Adicionar item",
		"remove_item":           "Remover",
		"optimize":              "Otimizar com IA",
		"optimizing":            "Otimizando...",
		"follow_up":             "Registrar contato",
		"pending_follow_up":     "Follow-up pendente",
		"days_since_contact":    "dias sem contato",
		"no_proposals":          "Nenhum orçamento cadastrado.",
		"no_pending":            "Nenhum follow-up pendente.",
		"count":                 "Quantidade",
		"required":              "Obrigatório",
		"invalid_number":        "Número inválido",
		"must_not_be_negative":  "Não pode ser negativo",
		"proposal_saved":        "Orçamento salvo com sucesso!",
		"proposal_deleted":      "Orçamento excluído.",
		"client_required":       "Informe o nome do cliente.",
		"description_optimized": "Descrição otimizada pela IA!",
		"description_unchanged": "Não foi possível otimizar; a descrição original foi mantida.",
		"status_changed":        "Status atualizado.",
		"follow_up_recorded":    "Contato registrado.",
		"export_done":           "PDF gerado.",
		"export_failed":         "Falha ao gerar o PDF.",
		"last_item":             "O orçamento precisa de pelo menos um item.",
		"busy":                  "Aguarde a operação em andamento.",
		"not_found":             "Orçamento não encontrado.",
		"save_failed":           "Não foi possível salvar.",
		"confirmation_required": "Confirme a exclusão.",
		"no_working_copy":       "Nenhum orçamento em edição.",
		"invalid_status":        "Status inválido.",
		"rewrite_pending":       "A otimização continua em segundo plano.",
	},
	"en": {
		"app_title":             "Proposals",
		"dashboard":             "Proposals",
		"pipeline":              "Sales pipeline",
		"new_proposal":          "New proposal",
		"edit_proposal":         "Edit proposal",
		"number":                "Number",
		"date":                  "Date",
		"client":                "Client",
		"contact":               "Contact",
		"phone":                 "Phone",
		"address":               "Address",
		"salesperson":           "Salesperson",
		"items":                 "Items",
		"description":           "Description",
		"quantity":              "Qty",
		"unit_price":            "Unit price",
		"line_total":            "Total",
		"total":                 "Total",
		"delivery_terms":        "Delivery",
		"payment_terms":         "Payment",
		"status":                "Status",
		"status_open":           "Open",
		"status_in_progress":    "In progress",
		"status_closed":         "Closed",
		"status_cancelled":      "Cancelled",
		"actions":               "Actions",
		"save":                  "Save",
		"apply":                 "Update",
		"back":                  "Back",
		"edit":                  "Edit",
		"preview":               "Preview",
		"print":                 "Print",
		"pdf":                   "Download PDF",
		"share":                 "WhatsApp",
		"delete":                "Delete",
		"confirm_delete":        "Delete this proposal? This cannot be undone.",
		"add_item":              "Add item",
		"remove_item":           "Remove",
		"optimize":              "Improve with AI",
		"optimizing":            "Improving...",
		"follow_up":             "Log contact",
		"pending_follow_up":     "Follow-up due",
		"days_since_contact":    "days without contact",
		"no_proposals":          "No proposals yet.",
		"no_pending":            "No follow-ups due.",
		"count":                 "Count",
		"required":              "Required",
		"invalid_number":        "Invalid number",
		"must_not_be_negative":  "Must not be negative",
		"proposal_saved":        "Proposal saved!",
		"proposal_deleted":      "Proposal deleted.",
		"client_required":       "Client name is required.",
		"description_optimized": "Description improved by AI!",
		"description_unchanged": "Could not improve the description; the original was kept.",
		"status_changed":        "Status updated.",
		"follow_up_recorded":    "Contact logged.",
		"export_done":           "PDF generated.",
		"export_failed":         "PDF generation failed.",
		"last_item":             "A proposal needs at least one item.",
		"busy":                  "Please wait for the running task.",
		"not_found":             "Proposal not found.",
		"save_failed":           "Could not save.",
		"confirmation_required": "Please confirm the deletion.",
		"no_working_copy":       "No proposal is being edited.",
		"invalid_status":        "Invalid status.",
		"rewrite_pending":       "The rewrite is still running in the background.",
	},
}
